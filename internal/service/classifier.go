package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
)

const (
	defaultMinConfidence   = 0.4
	defaultClassifyTimeout = 30 * time.Second
)

// ClassifierOptions groups dependencies for Classifier.
type ClassifierOptions struct {
	LLM           core.LLMClient      // Required: LLM provider
	Cache         core.ScoreCache     // Optional: per-category score cache
	MinConfidence float64             // Optional: acceptance threshold, default 0.4
	FallbackOrder model.FallbackOrder // Optional: override the default fallback table
	CallTimeout   time.Duration       // Optional: per-category LLM timeout, default 30s
	Logger        *slog.Logger        // Optional: structured logger
}

// Classifier decides whether a record plausibly belongs to a requested
// category, falling back across alternates when it does not. Each category
// comparison is one LLM call, so the scan is bounded by the category set.
type Classifier struct {
	llm           core.LLMClient
	cache         core.ScoreCache
	minConfidence float64
	fallbackOrder model.FallbackOrder
	callTimeout   time.Duration
	logger        *slog.Logger
}

// NewClassifier constructs a Classifier.
func NewClassifier(opts ClassifierOptions) (*Classifier, error) {
	if opts.LLM == nil {
		return nil, errors.New("LLMClient is required")
	}

	minConfidence := opts.MinConfidence
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = defaultMinConfidence
	}
	fallbackOrder := opts.FallbackOrder
	if fallbackOrder == nil {
		fallbackOrder = model.DefaultFallbackOrder()
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultClassifyTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "classifier")
	}

	return &Classifier{
		llm:           opts.LLM,
		cache:         opts.Cache,
		minConfidence: minConfidence,
		fallbackOrder: fallbackOrder,
		callTimeout:   callTimeout,
		logger:        logger,
	}, nil
}

// MinConfidence returns the configured acceptance threshold.
func (c *Classifier) MinConfidence() float64 {
	return c.minConfidence
}

type categoryVerdict struct {
	category  model.Category
	score     float64
	reasoning string
	err       error
}

// Classify scores the record against the requested category first, then
// scans the configured fallback order until one category clears the
// threshold or the list is exhausted. Per-category LLM errors score as zero
// and never abort the scan.
func (c *Classifier) Classify(
	ctx context.Context,
	record *model.RecordSummary,
	requested model.Category,
) (*model.CompatibilityDecision, error) {
	if record == nil {
		return nil, errors.New("record summary is required")
	}
	if !requested.Valid() {
		return nil, fmt.Errorf("invalid category: %q", requested)
	}

	decision := &model.CompatibilityDecision{
		RequestedCategory: requested,
		Scores:            make(map[model.Category]float64),
	}

	scan := append([]model.Category{requested}, c.fallbackOrder.For(requested)...)

	var verdicts []categoryVerdict
	for _, category := range scan {
		v := c.scoreCategory(ctx, record, category)
		verdicts = append(verdicts, v)
		decision.Scores[category] = v.score

		if v.err != nil {
			if c.logger != nil {
				c.logger.WarnContext(ctx, "category comparison failed",
					"record_id", record.ID, "category", category, "error", v.err)
			}
			continue
		}

		if v.score >= c.minConfidence {
			decision.Passed = true
			decision.ResolvedCategory = v.category
			decision.CategoryChanged = v.category != requested
			decision.Confidence = v.score
			decision.Reasoning = v.reasoning
			return decision, nil
		}
	}

	// Nothing cleared the threshold. Explain with the best verdict we saw,
	// or the aggregated errors when every comparison failed.
	best, allErrored := bestVerdict(verdicts)
	if allErrored {
		var msgs []string
		for _, v := range verdicts {
			msgs = append(msgs, fmt.Sprintf("%s: %v", v.category, v.err))
		}
		decision.Reasoning = "all category comparisons failed: " + strings.Join(msgs, "; ")
		return decision, nil
	}

	decision.ResolvedCategory = best.category
	decision.Confidence = best.score
	decision.Reasoning = best.reasoning
	return decision, nil
}

// bestVerdict returns the highest-scoring verdict, breaking ties by scan
// order, and whether every verdict carried an error.
func bestVerdict(verdicts []categoryVerdict) (categoryVerdict, bool) {
	var best categoryVerdict
	found := false
	for _, v := range verdicts {
		if v.err != nil {
			continue
		}
		if !found || v.score > best.score {
			best = v
			found = true
		}
	}
	return best, !found
}

type compatibilityResponse struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func (c *Classifier) scoreCategory(
	ctx context.Context,
	record *model.RecordSummary,
	category model.Category,
) categoryVerdict {
	v := categoryVerdict{category: category}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, record.ID, category)
		if err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "score cache lookup failed",
				"record_id", record.ID, "category", category, "error", err)
		}
		if cached != nil {
			v.score = cached.Score
			v.reasoning = cached.Reasoning
			return v
		}
	}

	template, err := TemplateFor(category)
	if err != nil {
		v.err = err
		return v
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	raw, err := c.llm.Complete(callCtx, core.CompletionRequest{
		System: "You assess whether a professional profile fits a given role category. " +
			"Respond with JSON only: {\"score\": <0.0-1.0>, \"reasoning\": \"<one sentence>\"}.",
		Prompt: fmt.Sprintf(
			"Category: %s.\n\nProfile:\n%s\n\nHow well does this profile fit the category?",
			template.Description, recordContext(record)),
		JSONResponse: true,
	})
	if err != nil {
		v.err = fmt.Errorf("score category %s: %w", category, err)
		return v
	}

	var parsed compatibilityResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		v.err = fmt.Errorf("parse compatibility response for %s: %w", category, err)
		return v
	}
	if parsed.Score < 0 || parsed.Score > 1 {
		v.err = fmt.Errorf("compatibility score %f for %s out of range", parsed.Score, category)
		return v
	}

	v.score = parsed.Score
	v.reasoning = parsed.Reasoning

	if c.cache != nil {
		if err := c.cache.Set(ctx, record.ID, category, core.CategoryScore{
			Score:     v.score,
			Reasoning: v.reasoning,
		}); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "score cache store failed",
				"record_id", record.ID, "category", category, "error", err)
		}
	}
	return v
}
