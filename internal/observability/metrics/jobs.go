// Package metrics emits standardised job lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/b0vik/subgencluster-api-server/internal/observability/errors"
	"github.com/b0vik/subgencluster-api-server/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultEmpty tags a claim attempt that found no eligible job.
	ResultEmpty = "empty"
)

// Event constants for metric tagging, matching the job lifecycle events.
const (
	EventSubmit   = "submit"
	EventClaim    = "claim"
	EventProgress = "progress"
	EventComplete = "complete"
	EventRequeue  = "requeue"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	JobKind  string
	Event    string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"event":  in.Event,
		"result": in.Result,
	}
	if in.JobKind != "" {
		tags["job_kind"] = in.JobKind
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
