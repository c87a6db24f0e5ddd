package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegate/screener/internal/domain/model"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{"single service", "http", map[ServiceMode]bool{ServiceModeHTTP: true}, false},
		{"multiple services", "http, scorer-runner", map[ServiceMode]bool{
			ServiceModeHTTP: true, ServiceModeScoreRunner: true,
		}, false},
		{"all services", "http,scorer-runner,reaper", map[ServiceMode]bool{
			ServiceModeHTTP: true, ServiceModeScoreRunner: true, ServiceModeReaper: true,
		}, false},
		{"empty string", "", nil, true},
		{"only commas", ",,", nil, true},
		{"unknown service", "http,metrics", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "http", cfg.Services)
	assert.True(t, cfg.IsHTTPServerEnabled())

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)

	assert.InDelta(t, 0.4, cfg.Gate.MinConfidence, 1e-9)
	assert.Equal(t, 2, cfg.Gate.MaxConcurrent)
	assert.Equal(t, 10*time.Second, cfg.Gate.ProbeTimeout)

	assert.Equal(t, 2, cfg.ScoreRunner.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.ScoreRunner.JobLease)
	assert.Equal(t, 3, cfg.ScoreRunner.MaxAttempts)

	assert.Equal(t, time.Hour, cfg.Reaper.Interval)
	assert.Equal(t, 500, cfg.Reaper.BatchSize)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.Observability.Metrics.Enabled)
}

func TestGateConfig_SanitizeGuardrails(t *testing.T) {
	g := GateConfig{MinConfidence: 1.7, MaxConcurrent: -1, ProbeTimeout: -time.Second}
	g.Sanitize()

	assert.InDelta(t, 0.4, g.MinConfidence, 1e-9)
	assert.Equal(t, 2, g.MaxConcurrent)
	assert.Equal(t, 10*time.Second, g.ProbeTimeout)
	assert.Equal(t, 30*time.Second, g.ClassifyTimeout)
}

func TestGateConfig_FallbackOrder(t *testing.T) {
	g := GateConfig{
		FallbackEngineering: []model.Category{model.CategoryDesign, model.CategoryProduct},
	}
	order := g.FallbackOrder()

	// Configured override wins; unconfigured categories keep the defaults.
	assert.Equal(t, []model.Category{model.CategoryDesign, model.CategoryProduct},
		order.For(model.CategoryEngineering))
	assert.Equal(t, model.DefaultFallbackOrder()[model.CategoryProduct],
		order.For(model.CategoryProduct))
}

func TestScoreRunnerConfig_SanitizeGuardrails(t *testing.T) {
	s := ScoreRunnerConfig{Concurrency: 0, JobLease: time.Second, MaxAttempts: 0, RetryDelay: -1}
	s.Sanitize()

	assert.Equal(t, 1, s.Concurrency)
	assert.Equal(t, 5*time.Second, s.JobLease)
	assert.Equal(t, 3, s.MaxAttempts)
	assert.Equal(t, 30*time.Second, s.RetryDelay)
}

func TestReaperConfig_SanitizeGuardrails(t *testing.T) {
	r := ReaperConfig{Interval: time.Second, PendingMaxAge: time.Minute, BatchSize: 0}
	r.Sanitize()

	assert.Equal(t, time.Minute, r.Interval)
	assert.Equal(t, time.Hour, r.PendingMaxAge)
	assert.Equal(t, 1, r.BatchSize)
}

func TestLLMConfig_SanitizeTrimsBaseURL(t *testing.T) {
	l := LLMConfig{BaseURL: " https://api.example.com/v1/ "}
	l.Sanitize()
	assert.Equal(t, "https://api.example.com/v1", l.BaseURL)
	assert.Equal(t, 60*time.Second, l.CallTimeout)
}

func TestAppConfig_ParsesEnvOverrides(t *testing.T) {
	t.Setenv("SERVICES", "scorer-runner,reaper")
	t.Setenv("GATE_MIN_CONFIDENCE", "0.6")
	t.Setenv("SCORER_CONCURRENCY", "8")
	t.Setenv("GATE_FALLBACK_ENGINEERING", "design,product")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsHTTPServerEnabled())
	enabled, err := cfg.GetEnabledServices()
	require.NoError(t, err)
	assert.True(t, enabled[ServiceModeScoreRunner])
	assert.True(t, enabled[ServiceModeReaper])

	assert.InDelta(t, 0.6, cfg.Gate.MinConfidence, 1e-9)
	assert.Equal(t, 8, cfg.ScoreRunner.Concurrency)
	assert.Equal(t, []model.Category{model.CategoryDesign, model.CategoryProduct},
		cfg.Gate.FallbackEngineering)
}
