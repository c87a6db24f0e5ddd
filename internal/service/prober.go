package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profilegate/screener/internal/adapters/profileapi"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
)

const defaultProbeTimeout = 10 * time.Second

// ProberOptions groups dependencies for Prober.
type ProberOptions struct {
	Provider core.ProfileProvider // Required: external profile provider
	Timeout  time.Duration        // Optional: per-fetch timeout, default 10s
	Logger   *slog.Logger         // Optional: structured logger
}

// Prober performs the single accessibility fetch of the quality gate. It
// issues exactly one provider call per run and never retries; every failure
// mode maps to a failed result rather than an error.
type Prober struct {
	provider core.ProfileProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProber constructs a Prober.
func NewProber(opts ProberOptions) (*Prober, error) {
	if opts.Provider == nil {
		return nil, errors.New("ProfileProvider is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "prober")
	}

	return &Prober{
		provider: opts.Provider,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Probe fetches the record behind the normalized identifier and verifies it
// carries the minimum field set. The returned result is failed when the
// record is missing, restricted, incomplete, or the provider call errors.
func (p *Prober) Probe(ctx context.Context, normalizedID string) *model.ProbeResult {
	start := time.Now()
	res := &model.ProbeResult{
		ValidationResult: model.ValidationResult{Stage: model.StageProbe},
	}
	defer func() {
		res.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	summary, err := p.provider.FetchRecord(fetchCtx, normalizedID)
	switch {
	case errors.Is(err, profileapi.ErrRecordNotFound):
		return failProbe(res, "record not found at the provider")
	case errors.Is(err, profileapi.ErrRecordForbidden):
		return failProbe(res, "record access is forbidden at the provider")
	case errors.Is(err, context.DeadlineExceeded):
		return failProbe(res, fmt.Sprintf("provider fetch timed out after %s", p.timeout))
	case err != nil:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "provider fetch failed", "error", err)
		}
		return failProbe(res, fmt.Sprintf("provider fetch failed: %v", err))
	}

	if !summary.Complete() {
		return failProbe(res, "record lacks the minimum field set (identifier and display name)")
	}

	res.Passed = true
	res.Summary = summary
	return res
}

func failProbe(res *model.ProbeResult, msg string) *model.ProbeResult {
	res.Passed = false
	res.Errors = append(res.Errors, msg)
	return res
}
