package config

import (
	"strings"
	"time"

	"github.com/profilegate/screener/internal/domain/model"
)

// GateConfig contains quality gate configuration.
type GateConfig struct {
	// MinConfidence is the classifier acceptance threshold.
	MinConfidence float64 `env:"GATE_MIN_CONFIDENCE" envDefault:"0.4"`

	// MaxConcurrent bounds simultaneous gate runs; excess submissions
	// queue rather than firing immediately.
	MaxConcurrent int `env:"GATE_MAX_CONCURRENT" envDefault:"2"`

	// ProbeTimeout bounds the single accessibility fetch.
	ProbeTimeout time.Duration `env:"GATE_PROBE_TIMEOUT" envDefault:"10s"`

	// ClassifyTimeout bounds each per-category classifier LLM call.
	ClassifyTimeout time.Duration `env:"GATE_CLASSIFY_TIMEOUT" envDefault:"30s"`

	// Per-category fallback order overrides, comma-delimited category
	// lists. Empty means the built-in default order.
	FallbackEngineering []model.Category `env:"GATE_FALLBACK_ENGINEERING" envDefault:""`
	FallbackProduct     []model.Category `env:"GATE_FALLBACK_PRODUCT"     envDefault:""`
	FallbackDesign      []model.Category `env:"GATE_FALLBACK_DESIGN"      envDefault:""`
}

// Sanitize applies guardrails to gate configuration values.
func (g *GateConfig) Sanitize() {
	if g.MinConfidence <= 0 || g.MinConfidence > 1 {
		g.MinConfidence = 0.4
	}
	if g.MaxConcurrent < 1 {
		g.MaxConcurrent = 2
	}
	if g.ProbeTimeout <= 0 {
		g.ProbeTimeout = 10 * time.Second
	}
	if g.ClassifyTimeout <= 0 {
		g.ClassifyTimeout = 30 * time.Second
	}
}

// FallbackOrder builds the classifier fallback table from the configured
// overrides, falling back to the defaults per requested category.
func (g *GateConfig) FallbackOrder() model.FallbackOrder {
	order := model.DefaultFallbackOrder()
	for requested, configured := range map[model.Category][]model.Category{
		model.CategoryEngineering: g.FallbackEngineering,
		model.CategoryProduct:     g.FallbackProduct,
		model.CategoryDesign:      g.FallbackDesign,
	} {
		if len(configured) > 0 {
			order[requested] = configured
		}
	}
	return order
}

// ProviderConfig contains the external profile provider client configuration.
type ProviderConfig struct {
	BaseURL string `env:"PROVIDER_BASE_URL" envDefault:"http://localhost:9000"`
	APIKey  string `env:"PROVIDER_API_KEY"  envDefault:""`

	// JMESPath projections mapping provider payload fields onto the record
	// summary.
	ProjectionID          string `env:"PROVIDER_PROJECTION_ID"           envDefault:"id"`
	ProjectionDisplayName string `env:"PROVIDER_PROJECTION_DISPLAY_NAME" envDefault:"display_name"`
	ProjectionHeadline    string `env:"PROVIDER_PROJECTION_HEADLINE"     envDefault:"headline"`
	ProjectionLocation    string `env:"PROVIDER_PROJECTION_LOCATION"     envDefault:"location.name"`
}

// LLMConfig contains the LLM provider client configuration, shared by the
// classifier and the scorer.
type LLMConfig struct {
	BaseURL     string        `env:"LLM_BASE_URL"     envDefault:"https://api.openai.com/v1"`
	APIKey      string        `env:"LLM_API_KEY"      envDefault:""`
	Model       string        `env:"LLM_MODEL"        envDefault:"gpt-4o-mini"`
	Temperature float64       `env:"LLM_TEMPERATURE"  envDefault:"0"`
	CallTimeout time.Duration `env:"LLM_CALL_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to LLM configuration values.
func (l *LLMConfig) Sanitize() {
	l.BaseURL = strings.TrimRight(strings.TrimSpace(l.BaseURL), "/")
	if l.CallTimeout <= 0 {
		l.CallTimeout = 60 * time.Second
	}
}
