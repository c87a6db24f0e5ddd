package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/observability/metrics"
	"github.com/profilegate/screener/internal/observability/statsd"
)

const defaultGateMaxConcurrent = 2

// GateOptions groups dependencies for Gate.
type GateOptions struct {
	Sanitizer  *Sanitizer   // Required
	Prober     *Prober      // Required
	Classifier *Classifier  // Required
	JobService *JobService  // Required for Ingest, optional for Run
	// MaxConcurrent bounds simultaneous gate runs; excess callers queue.
	// Default 2.
	MaxConcurrent int
	Metrics       statsd.Sink  // Optional
	Logger        *slog.Logger // Optional
}

// Gate sequences the validation chain: sanitize, probe, classify. Stages run
// strictly in order and short-circuit on the first failure, so expensive
// stages never run on inputs that fail cheap ones.
type Gate struct {
	sanitizer  *Sanitizer
	prober     *Prober
	classifier *Classifier
	jobService *JobService
	admission  *semaphore.Weighted
	sink       statsd.Sink
	logger     *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Sanitizer == nil {
		return nil, errors.New("Sanitizer is required")
	}
	if opts.Prober == nil {
		return nil, errors.New("Prober is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("Classifier is required")
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultGateMaxConcurrent
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "gate")
	}

	return &Gate{
		sanitizer:  opts.Sanitizer,
		prober:     opts.Prober,
		classifier: opts.Classifier,
		jobService: opts.JobService,
		admission:  semaphore.NewWeighted(int64(maxConcurrent)),
		sink:       opts.Metrics,
		logger:     logger,
	}, nil
}

// Run executes the validation chain for the raw identifier and requested
// category. Stage failures are data on the result; only input validation
// and infrastructure faults return an error.
func (g *Gate) Run(
	ctx context.Context,
	rawID string,
	requested model.Category,
) (*model.GateResult, error) {
	if strings.TrimSpace(rawID) == "" {
		return nil, errors.New("identifier is required")
	}
	if !requested.Valid() {
		return nil, fmt.Errorf("unknown category: %q", requested)
	}

	if err := g.admission.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire gate slot: %w", err)
	}
	defer g.admission.Release(1)

	result := &model.GateResult{}

	sanitized := g.sanitizer.Sanitize(rawID)
	g.recordStage(sanitized.ValidationResult)
	result.StageResults = append(result.StageResults, sanitized.ValidationResult)
	if !sanitized.Passed {
		return result, nil
	}
	result.Normalized = sanitized.Normalized

	probed := g.prober.Probe(ctx, sanitized.Normalized)
	g.recordStage(probed.ValidationResult)
	result.StageResults = append(result.StageResults, probed.ValidationResult)
	if !probed.Passed {
		return result, nil
	}

	start := time.Now()
	decision, err := g.classifier.Classify(ctx, probed.Summary, requested)
	if err != nil {
		return nil, fmt.Errorf("classify record: %w", err)
	}
	compat := compatibilityStageResult(decision, time.Since(start))
	g.recordStage(compat)
	result.StageResults = append(result.StageResults, compat)
	if !decision.Passed {
		return result, nil
	}

	resolved := decision.ResolvedCategory
	result.Passed = true
	result.ResolvedCategory = &resolved

	if g.logger != nil {
		g.logger.InfoContext(ctx, "gate passed",
			"normalized", result.Normalized,
			"requested_category", requested,
			"resolved_category", resolved,
			"category_changed", decision.CategoryChanged,
		)
	}
	return result, nil
}

// compatibilityStageResult flattens a classifier decision into the stage
// result list shape the caller receives.
func compatibilityStageResult(decision *model.CompatibilityDecision, elapsed time.Duration) model.ValidationResult {
	res := model.ValidationResult{
		Stage:     model.StageCompatibility,
		Passed:    decision.Passed,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000.0,
	}
	if !decision.Passed {
		msg := decision.Reasoning
		if msg == "" {
			msg = "no category cleared the confidence threshold"
		}
		res.Errors = append(res.Errors, msg)
	} else if decision.CategoryChanged {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"category changed from %s to %s", decision.RequestedCategory, decision.ResolvedCategory))
	}
	return res
}

func (g *Gate) recordStage(res model.ValidationResult) {
	metrics.EmitGateStage(g.sink, metrics.GateStageMetric{
		Stage:    string(res.Stage),
		Passed:   res.Passed,
		Duration: time.Duration(res.ElapsedMS * float64(time.Millisecond)),
	})
}

// IngestResult is the outcome of a validate-and-ingest request. JobID is
// set only when the gate accepted the record and a scoring job was created.
type IngestResult struct {
	Accepted         bool                     `json:"accepted"`
	StageResults     []model.ValidationResult `json:"stage_results"`
	Normalized       string                   `json:"normalized,omitempty"`
	ResolvedCategory *model.Category          `json:"resolved_category,omitempty"`
	JobID            string                   `json:"job_id,omitempty"`
}

// Ingest runs the gate and, on acceptance, creates a scoring job for the
// subject with the resolved category. The caller gets the job id
// immediately; scoring happens in the background.
func (g *Gate) Ingest(
	ctx context.Context,
	rawID string,
	subjectID string,
	requested model.Category,
) (*IngestResult, error) {
	if g.jobService == nil {
		return nil, errors.New("gate has no job service wired")
	}

	gateResult, err := g.Run(ctx, rawID, requested)
	if err != nil {
		return nil, err
	}

	out := &IngestResult{
		Accepted:         gateResult.Passed,
		StageResults:     gateResult.StageResults,
		Normalized:       gateResult.Normalized,
		ResolvedCategory: gateResult.ResolvedCategory,
	}
	if !gateResult.Passed {
		return out, nil
	}

	job, err := g.jobService.Create(ctx, &model.CreateJobRequest{
		SubjectID: subjectID,
		Category:  *gateResult.ResolvedCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("create scoring job: %w", err)
	}
	out.JobID = job.ID
	return out, nil
}
