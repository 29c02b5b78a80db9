// Package model defines the core data types used throughout the subgencluster broker.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind determines which identity field is authoritative when retrieving
// a job's transcript.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the current lifecycle state of a job.
type JobStatus string

// TranscriptionModel is one of the fixed set of recognized whisper model names.
type TranscriptionModel string

const (
	// JobKindPublicURL identifies jobs sourced from an external public URL.
	JobKindPublicURL JobKind = "public-url"
	// JobKindFile identifies jobs sourced from an uploaded payload, identified
	// by content hash.
	JobKindFile JobKind = "file"
	// JobKindNone is the distinguished kind returned to polling workers when
	// no job is available. It is never persisted.
	JobKindNone JobKind = "none"

	// JobStatusRequested indicates a job is waiting to be claimed by a worker.
	JobStatusRequested JobStatus = "requested"
	// JobStatusAssigned indicates a worker holds the job but has not yet
	// reported progress.
	JobStatusAssigned JobStatus = "assigned"
	// JobStatusTranscribing indicates the assigned worker has reported at
	// least one progress update.
	JobStatusTranscribing JobStatus = "transcribing"
	// JobStatusCompleted indicates the transcript is final. Terminal.
	JobStatusCompleted JobStatus = "completed"
)

// transcriptionModels is the recognized model enumeration. Submissions naming
// anything else are rejected with a validation error.
var transcriptionModels = map[TranscriptionModel]struct{}{
	"tiny": {}, "tiny.en": {},
	"base": {}, "base.en": {},
	"small": {}, "small.en": {},
	"medium": {}, "medium.en": {},
	"large-v2": {}, "large-v3": {},
}

// ErrNoJobsAvailable is returned by claim operations when no requested job
// exists. It signals "retry later", not a failure.
var ErrNoJobsAvailable = errors.New("no jobs available")

// UnmarshalText implements encoding.TextUnmarshaler for JobKind to allow env
// and query-string parsing.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := JobKind(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*k = v
		return nil
	}
	return fmt.Errorf("invalid JobKind: %q", v)
}

// Valid returns true if the JobKind is a persistable kind.
func (k JobKind) Valid() bool {
	return k == JobKindPublicURL || k == JobKindFile
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusRequested || s == JobStatusAssigned ||
		s == JobStatusTranscribing || s == JobStatusCompleted
}

// Ordinal returns the position of the status in the forward-only lifecycle
// order. Higher ordinals never transition to lower ones.
func (s JobStatus) Ordinal() int {
	switch s {
	case JobStatusRequested:
		return 0
	case JobStatusAssigned:
		return 1
	case JobStatusTranscribing:
		return 2
	case JobStatusCompleted:
		return 3
	default:
		return -1
	}
}

// Valid returns true if the model name is in the recognized enumeration.
func (m TranscriptionModel) Valid() bool {
	_, ok := transcriptionModels[m]
	return ok
}

// Job is a transcription job record. The repository exclusively owns the
// persisted state; status only ever advances through the lifecycle engine.
type Job struct {
	ID              string             `json:"id"                          db:"id"`
	RequestingUser  string             `json:"requesting_user"             db:"requesting_user"`
	RequestedModel  TranscriptionModel `json:"requested_model"             db:"requested_model"`
	Kind            JobKind            `json:"job_kind"                    db:"job_kind"`
	SourceLocator   string             `json:"source_locator"              db:"source_locator"`
	ContentHash     *string            `json:"content_hash,omitempty"      db:"content_hash"`
	Status          JobStatus          `json:"status"                      db:"status"`
	AssignedWorker  *string            `json:"assigned_worker,omitempty"   db:"assigned_worker"`
	Transcript      string             `json:"transcript"                  db:"transcript"`
	Progress        *float64           `json:"progress,omitempty"          db:"progress"`
	EstimatedTotal  *float64           `json:"estimated_total,omitempty"   db:"estimated_total_seconds"`
	LiveTranscribe  bool               `json:"live_transcribe"             db:"live_transcribe"`
	RequestedAt     time.Time          `json:"requested_at"                db:"requested_at"`
	AssignedAt      *time.Time         `json:"assigned_at,omitempty"       db:"assigned_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"      db:"completed_at"`
}

// CreateJobRequest represents a client submission.
type CreateJobRequest struct {
	RequestingUser string             `json:"requesting_user"`
	RequestedModel TranscriptionModel `json:"requested_model"`
	Kind           JobKind            `json:"job_kind"`
	SourceLocator  string             `json:"source_locator"`
	ContentHash    *string            `json:"content_hash,omitempty"`
	LiveTranscribe bool               `json:"live_transcribe,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.RequestingUser == "" {
		return errors.New("requesting user is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid job kind %q", r.Kind)
	}
	if !r.RequestedModel.Valid() {
		return fmt.Errorf("invalid requested model %q", r.RequestedModel)
	}
	if r.SourceLocator == "" {
		return errors.New("source locator is required")
	}
	if (r.Kind == JobKindFile) != (r.ContentHash != nil && *r.ContentHash != "") {
		return errors.New("content hash must be set for file jobs and only for file jobs")
	}
	return nil
}

// ClaimedJob is the assignment payload handed to a worker. Kind is
// JobKindNone when nothing was eligible.
type ClaimedJob struct {
	JobID          string             `json:"job_id,omitempty"`
	Kind           JobKind            `json:"job_kind"`
	SourceLocator  string             `json:"source_locator,omitempty"`
	ContentHash    *string            `json:"content_hash,omitempty"`
	RequestedModel TranscriptionModel `json:"requested_model,omitempty"`
	LiveTranscribe bool               `json:"live_transcribe,omitempty"`
	RequestedAt    *time.Time         `json:"requested_at,omitempty"`
}

// NoJob is the distinguished claim response when the queue is empty.
func NoJob() *ClaimedJob {
	return &ClaimedJob{Kind: JobKindNone}
}

// ProgressReport carries a worker's progress update. Transcript and telemetry
// are overwritten last-write-wins; no merging is attempted.
type ProgressReport struct {
	WorkerID       string   `json:"worker_id"`
	Transcript     string   `json:"transcript"`
	Progress       *float64 `json:"progress,omitempty"`
	EstimatedTotal *float64 `json:"estimated_total,omitempty"`
}

// Validate validates the ProgressReport fields.
func (r *ProgressReport) Validate() error {
	if r.WorkerID == "" {
		return errors.New("worker id is required")
	}
	if r.Progress != nil && (*r.Progress < 0 || *r.Progress > 1) {
		return errors.New("progress must be between 0 and 1")
	}
	return nil
}

// CompletionReport carries a worker's final transcript.
type CompletionReport struct {
	WorkerID   string `json:"worker_id"`
	Transcript string `json:"transcript"`
}

// Validate validates the CompletionReport fields.
func (r *CompletionReport) Validate() error {
	if r.WorkerID == "" {
		return errors.New("worker id is required")
	}
	if strings.TrimSpace(r.Transcript) == "" {
		return errors.New("transcript is required")
	}
	return nil
}

// JobSummary is the client-facing view of a completed job.
type JobSummary struct {
	ID             string             `json:"id"`
	Kind           JobKind            `json:"job_kind"`
	RequestedModel TranscriptionModel `json:"requested_model"`
	Transcript     string             `json:"transcript"`
	Worker         string             `json:"worker,omitempty"`
	RequestedAt    time.Time          `json:"requested_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// Summary maps a job to its client-facing summary.
func (j *Job) Summary() *JobSummary {
	s := &JobSummary{
		ID:             j.ID,
		Kind:           j.Kind,
		RequestedModel: j.RequestedModel,
		Transcript:     j.Transcript,
		RequestedAt:    j.RequestedAt,
		CompletedAt:    j.CompletedAt,
	}
	if j.AssignedWorker != nil {
		s.Worker = *j.AssignedWorker
	}
	return s
}

// JobStatusResponse is the any-state status view of a job.
type JobStatusResponse struct {
	Status         JobStatus          `json:"status"`
	Kind           JobKind            `json:"job_kind"`
	RequestedModel TranscriptionModel `json:"requested_model"`
	Transcript     string             `json:"transcript,omitempty"`
	Progress       *float64           `json:"progress,omitempty"`
	EstimatedTotal *float64           `json:"estimated_total,omitempty"`
	RequestedAt    time.Time          `json:"requested_at"`
}

// IdentityQuery describes a retrieval-by-identity lookup.
type IdentityQuery struct {
	Kind JobKind
	// Key is the source URL for public-url jobs, the content hash for file jobs.
	Key string
}

// Validate validates the IdentityQuery fields.
func (q *IdentityQuery) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("invalid job kind %q", q.Kind)
	}
	if q.Key == "" {
		return errors.New("identity key is required")
	}
	return nil
}

// JobStats represents counts of jobs in each lifecycle state.
type JobStats struct {
	Requested    int `json:"requested"`
	Assigned     int `json:"assigned"`
	Transcribing int `json:"transcribing"`
	Completed    int `json:"completed"`
}
