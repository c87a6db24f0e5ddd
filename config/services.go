package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScoreRunner runs the scoring job worker pool.
	ServiceModeScoreRunner ServiceMode = "scorer-runner"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeScoreRunner, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. It validates that all service names are valid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScoreRunner, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scorer-runner, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ScoreRunnerConfig contains score runner service configuration.
type ScoreRunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"SCORER_CONCURRENCY" envDefault:"2"`

	// JobLease is the duration to lease a scoring job.
	JobLease time.Duration `env:"SCORER_JOB_LEASE" envDefault:"60s"`

	// MaxAttempts is the default retry budget for new jobs.
	MaxAttempts int `env:"SCORER_MAX_ATTEMPTS" envDefault:"3"`

	// RetryDelay is the base backoff unit between retried attempts; the
	// actual delay grows with the attempt count.
	RetryDelay time.Duration `env:"SCORER_RETRY_DELAY" envDefault:"30s"`

	// CallTimeout bounds a single scoring LLM call.
	CallTimeout time.Duration `env:"SCORER_CALL_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to score runner configuration values.
func (s *ScoreRunnerConfig) Sanitize() {
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	if s.JobLease < 5*time.Second {
		s.JobLease = 5 * time.Second
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 3
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = 30 * time.Second
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = 60 * time.Second
	}
}

// ReaperConfig contains reaper service configuration.
type ReaperConfig struct {
	// Interval is how often cleanup runs.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// PendingMaxAge is how long a pending job may wait before it is failed.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"24h"`

	// CompletedMaxAge is how long completed jobs are retained.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"168h"`

	// FailedMaxAge is how long failed jobs are retained.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"336h"`

	// BatchSize bounds rows touched per cleanup statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.PendingMaxAge < time.Hour {
		r.PendingMaxAge = time.Hour
	}
	if r.CompletedMaxAge < time.Hour {
		r.CompletedMaxAge = time.Hour
	}
	if r.FailedMaxAge < time.Hour {
		r.FailedMaxAge = time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
}
