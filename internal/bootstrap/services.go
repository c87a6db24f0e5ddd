package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/profilegate/screener/config"
	"github.com/profilegate/screener/internal/adapters/llm"
	"github.com/profilegate/screener/internal/adapters/profileapi"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/data"
	"github.com/profilegate/screener/internal/observability/statsd"
	"github.com/profilegate/screener/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     *service.JobService
	Gate     *service.Gate
	Scorer   *service.Scorer
	Provider core.ProfileProvider
	JobRepo  *data.JobRepo

	MetricsSink *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient *redis.Client
	Logger      *slog.Logger
}

// NewServices wires repositories, collaborator clients, and services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink := buildMetricsSink(cfg.Observability.Metrics, logger)

	jobRepo := data.NewJobRepo(deps.DB, data.RepoConfig{
		RetryDelaySeconds:  int(cfg.ScoreRunner.RetryDelay.Seconds()),
		DefaultMaxAttempts: cfg.ScoreRunner.MaxAttempts,
		Logger:             logger,
	})

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:         jobRepo,
		DefaultLease: cfg.ScoreRunner.JobLease,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire job service: %w", err)
	}

	provider, err := profileapi.NewClient(profileapi.ClientConfig{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Gate.ProbeTimeout,
		Projections: profileapi.Projections{
			ID:          cfg.Provider.ProjectionID,
			DisplayName: cfg.Provider.ProjectionDisplayName,
			Headline:    cfg.Provider.ProjectionHeadline,
			Location:    cfg.Provider.ProjectionLocation,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire profile provider client: %w", err)
	}

	llmClient, err := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire llm client: %w", err)
	}

	var scoreCache core.ScoreCache = data.NoopScoreCache{}
	if deps.RedisClient != nil {
		scoreCache = data.NewRedisScoreCache(deps.RedisClient, data.RedisScoreCacheConfig{
			TTL:    cfg.Redis.ScoreTTL,
			Logger: logger,
		})
	}

	prober, err := service.NewProber(service.ProberOptions{
		Provider: provider,
		Timeout:  cfg.Gate.ProbeTimeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire prober: %w", err)
	}

	classifier, err := service.NewClassifier(service.ClassifierOptions{
		LLM:           llmClient,
		Cache:         scoreCache,
		MinConfidence: cfg.Gate.MinConfidence,
		FallbackOrder: cfg.Gate.FallbackOrder(),
		CallTimeout:   cfg.Gate.ClassifyTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire classifier: %w", err)
	}

	scorer, err := service.NewScorer(service.ScorerOptions{
		LLM:         llmClient,
		CallTimeout: cfg.ScoreRunner.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire scorer: %w", err)
	}

	gate, err := service.NewGate(service.GateOptions{
		Sanitizer:     service.NewSanitizer(),
		Prober:        prober,
		Classifier:    classifier,
		JobService:    jobs,
		MaxConcurrent: cfg.Gate.MaxConcurrent,
		Metrics:       metricsSink,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire gate: %w", err)
	}

	return &ServiceContainer{
		Jobs:        jobs,
		Gate:        gate,
		Scorer:      scorer,
		Provider:    provider,
		JobRepo:     jobRepo,
		MetricsSink: metricsSink,
	}, nil
}

func buildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
