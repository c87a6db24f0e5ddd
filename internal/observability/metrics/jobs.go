// Package metrics emits standardized gate and job lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/profilegate/screener/internal/observability/errors"
	"github.com/profilegate/screener/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a scoring job lifecycle event.
type JobMetric struct {
	Transition string
	Result     string
	Attempt    int
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, cloneTags(tags))
	}
}

// GateStageMetric captures the outcome of one gate stage run.
type GateStageMetric struct {
	Stage    string
	Passed   bool
	Duration time.Duration
}

// EmitGateStage emits per-stage gate metrics.
func EmitGateStage(sink statsd.Sink, in GateStageMetric) {
	if sink == nil {
		return
	}

	result := ResultError
	if in.Passed {
		result = ResultSuccess
	}
	tags := map[string]string{
		"stage":  in.Stage,
		"result": result,
	}

	sink.Count("gate.stage", 1, tags)
	if in.Duration > 0 {
		sink.Timing("gate.stage_duration", in.Duration, cloneTags(tags))
	}
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
