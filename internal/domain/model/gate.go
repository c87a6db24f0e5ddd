package model

// Stage identifies one link of the quality gate validation chain.
type Stage string

const (
	// StageSanitize is the zero-I/O identifier normalization stage.
	StageSanitize Stage = "sanitize"
	// StageProbe is the single-fetch accessibility check stage.
	StageProbe Stage = "probe"
	// StageCompatibility is the LLM-backed category compatibility stage.
	StageCompatibility Stage = "compatibility"
)

// ValidationResult is the immutable outcome of one gate stage. Stage
// failures are data, not errors: a failed stage produces a result with
// Passed=false and diagnostic detail, never a Go error.
type ValidationResult struct {
	Stage     Stage    `json:"stage"`
	Passed    bool     `json:"passed"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	ElapsedMS float64  `json:"elapsed_ms"`
}

// SanitizeResult is the sanitizer stage outcome plus the normalized
// identifier on success.
type SanitizeResult struct {
	ValidationResult
	Normalized string `json:"normalized,omitempty"`
}

// ProbeResult is the prober stage outcome plus a lightweight record
// projection on success.
type ProbeResult struct {
	ValidationResult
	Summary *RecordSummary `json:"summary,omitempty"`
}

// CompatibilityDecision captures the outcome of the category fallback scan.
type CompatibilityDecision struct {
	Passed            bool                 `json:"passed"`
	RequestedCategory Category             `json:"requested_category"`
	ResolvedCategory  Category             `json:"resolved_category"`
	CategoryChanged   bool                 `json:"category_changed"`
	Scores            map[Category]float64 `json:"scores"`
	Confidence        float64              `json:"confidence"`
	Reasoning         string               `json:"reasoning"`
}

// GateResult is the aggregate decision of one gate run. StageResults holds
// the results of every stage that executed, in order; a short-circuited run
// carries fewer than three entries.
type GateResult struct {
	Passed           bool               `json:"passed"`
	StageResults     []ValidationResult `json:"stage_results"`
	Normalized       string             `json:"normalized,omitempty"`
	ResolvedCategory *Category          `json:"resolved_category,omitempty"`
}
