// Package job contains the job lifecycle rules: which state transitions are
// legal, and which caller may drive them.
package job

import (
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
)

// Event is a lifecycle event a caller may issue against a job.
type Event string

const (
	// EventClaim transitions requested -> assigned. Arbitrated atomically by
	// the repository; never issued against a specific job.
	EventClaim Event = "claim"
	// EventProgress transitions assigned|transcribing -> transcribing.
	// Idempotent; may be issued any number of times.
	EventProgress Event = "progress"
	// EventComplete transitions assigned|transcribing -> completed. One-shot.
	EventComplete Event = "complete"
)

// sourceStates maps each event to the states it may be issued from.
var sourceStates = map[Event][]model.JobStatus{
	EventClaim:    {model.JobStatusRequested},
	EventProgress: {model.JobStatusAssigned, model.JobStatusTranscribing},
	EventComplete: {model.JobStatusAssigned, model.JobStatusTranscribing},
}

// Target returns the state an event lands in.
func Target(ev Event) model.JobStatus {
	switch ev {
	case EventClaim:
		return model.JobStatusAssigned
	case EventProgress:
		return model.JobStatusTranscribing
	case EventComplete:
		return model.JobStatusCompleted
	default:
		return ""
	}
}

// Allowed reports whether ev may be issued against a job in state from.
func Allowed(from model.JobStatus, ev Event) bool {
	for _, s := range sourceStates[ev] {
		if s == from {
			return true
		}
	}
	return false
}

// SourceStates returns the states ev may be issued from, in lifecycle order.
// The slice is shared; callers must not mutate it.
func SourceStates(ev Event) []model.JobStatus {
	return sourceStates[ev]
}

// CheckWorkerEvent validates a progress or completion event from a worker
// against the job's current state. It enforces the two guards shared by both
// events: the job must be in a compatible state, and the caller must be the
// worker holding the assignment.
func CheckWorkerEvent(j *model.Job, ev Event, workerID string) error {
	if !Allowed(j.Status, ev) {
		return apperrors.InvalidTransitionf(
			"cannot %s job %s in state %s", ev, j.ID, j.Status)
	}
	if j.AssignedWorker == nil || *j.AssignedWorker != workerID {
		return apperrors.InvalidTransitionf(
			"job %s is not assigned to worker %s", j.ID, workerID)
	}
	return nil
}
