package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/profilegate/screener/internal/adapters/llm"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
)

const defaultScoreCallTimeout = 60 * time.Second

// ScoringError is a failed scoring attempt. Retryable drives the job
// engine's requeue-or-fail decision.
type ScoringError struct {
	Retryable bool
	Err       error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed (retryable %t): %v", e.Retryable, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// IsRetryableScoringError reports whether err is a scoring error worth
// another job attempt.
func IsRetryableScoringError(err error) bool {
	var scoringErr *ScoringError
	if errors.As(err, &scoringErr) {
		return scoringErr.Retryable
	}
	return llm.IsRetryable(err)
}

// ScorerOptions groups dependencies for Scorer.
type ScorerOptions struct {
	LLM         core.LLMClient // Required: LLM provider
	CallTimeout time.Duration  // Optional: per-call timeout, default 60s
	Logger      *slog.Logger   // Optional: structured logger
}

// Scorer wraps the single scoring LLM call: deterministic prompt from the
// category template and record data, structured JSON output, one corrective
// re-prompt on a malformed first response.
type Scorer struct {
	llm         core.LLMClient
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewScorer constructs a Scorer.
func NewScorer(opts ScorerOptions) (*Scorer, error) {
	if opts.LLM == nil {
		return nil, errors.New("LLMClient is required")
	}

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultScoreCallTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "scorer")
	}

	return &Scorer{
		llm:         opts.LLM,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

const scorerSystemPrompt = "You score professional profiles against a role category. " +
	"Respond with JSON only, matching exactly: " +
	"{\"scores\": {\"<dimension>\": <0.0-1.0>, ...}, \"rationale\": \"<short explanation>\"}."

// Score evaluates the record against the category template. Transport
// failures carry the LLM client's retryability; a response that still fails
// to parse after the corrective re-prompt is non-retryable.
func (s *Scorer) Score(
	ctx context.Context,
	summary *model.RecordSummary,
	category model.Category,
) (*model.ScoringOutcome, error) {
	if summary == nil {
		return nil, &ScoringError{Err: errors.New("record summary is required")}
	}
	template, err := TemplateFor(category)
	if err != nil {
		return nil, &ScoringError{Err: err}
	}

	prompt := fmt.Sprintf(
		"Category: %s.\nScore the following profile on these dimensions: %s.\n\nProfile:\n%s",
		template.Description,
		strings.Join(template.Dimensions, ", "),
		recordContext(summary),
	)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, &ScoringError{Retryable: llm.IsRetryable(err), Err: err}
	}

	outcome, parseErr := parseScoringResponse(raw, template.Dimensions)
	if parseErr == nil {
		return outcome, nil
	}

	// One corrective re-prompt on a malformed first response.
	if s.logger != nil {
		s.logger.WarnContext(ctx, "scoring response malformed, re-prompting",
			"category", category, "error", parseErr)
	}
	corrective := prompt + fmt.Sprintf(
		"\n\nYour previous response was invalid (%v). Respond again with only the required JSON object.",
		parseErr)

	raw, err = s.complete(ctx, corrective)
	if err != nil {
		return nil, &ScoringError{Retryable: llm.IsRetryable(err), Err: err}
	}
	outcome, parseErr = parseScoringResponse(raw, template.Dimensions)
	if parseErr != nil {
		return nil, &ScoringError{Err: fmt.Errorf("scoring response unparseable after re-prompt: %w", parseErr)}
	}
	return outcome, nil
}

func (s *Scorer) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.llm.Complete(callCtx, core.CompletionRequest{
		System:       scorerSystemPrompt,
		Prompt:       prompt,
		JSONResponse: true,
	})
}

func parseScoringResponse(raw string, dimensions []string) (*model.ScoringOutcome, error) {
	var outcome model.ScoringOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return nil, fmt.Errorf("decode scoring payload: %w", err)
	}
	if len(outcome.Scores) == 0 {
		return nil, errors.New("scoring payload has no scores")
	}
	for _, dim := range dimensions {
		score, ok := outcome.Scores[dim]
		if !ok {
			return nil, fmt.Errorf("scoring payload missing dimension %q", dim)
		}
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("score %f for dimension %q out of range", score, dim)
		}
	}
	return &outcome, nil
}
