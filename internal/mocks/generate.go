// Package mocks provides mock implementations for testing the screener services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core port interfaces. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Create, GetByID, List, Stats, ReserveNext, Heartbeat, Complete, Fail, WaitForNotification
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/profilegate/screener/internal/core JobRepository

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods for all ReaperRepository interface methods:
// FailStalePendingJobs, DeleteOldJobs
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/profilegate/screener/internal/core ReaperRepository

// Generate mock for ProfileProvider interface from internal/core package.
// This creates MockProfileProvider with methods for all ProfileProvider interface methods:
// FetchRecord
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=profile_provider_mock.go github.com/profilegate/screener/internal/core ProfileProvider

// Generate mock for LLMClient interface from internal/core package.
// This creates MockLLMClient with methods for all LLMClient interface methods:
// Complete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=llm_client_mock.go github.com/profilegate/screener/internal/core LLMClient

// Generate mock for ScoreCache interface from internal/core package.
// This creates MockScoreCache with methods for all ScoreCache interface methods:
// Get, Set
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=score_cache_mock.go github.com/profilegate/screener/internal/core ScoreCache
