package core

import (
	"context"
	"time"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal
// architecture). Service implementations depend on these interfaces, not on
// concrete data-layer types.

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	// Create persists a new job in requested state.
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	// GetByID returns the job or a NotFound error.
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// FindByIdentity returns all jobs matching the external identity and
	// status, ordered by submission time ascending.
	FindByIdentity(ctx context.Context, q model.IdentityQuery, status model.JobStatus) ([]*model.Job, error)
	// ClaimNext atomically transitions one requested job to assigned for the
	// given worker. Returns model.ErrNoJobsAvailable when nothing is eligible;
	// the same job is never returned to two callers.
	ClaimNext(ctx context.Context, workerID string) (*model.Job, error)
	// ReportProgress applies a progress event, overwriting transcript and
	// telemetry last-write-wins. Fails with InvalidTransition when the job is
	// not assigned/transcribing or the caller is not the assigned worker.
	ReportProgress(ctx context.Context, jobID string, report *model.ProgressReport) (*model.Job, error)
	// ReportCompletion applies the one-shot completion event, freezing the
	// transcript and setting the completion timestamp.
	ReportCompletion(ctx context.Context, jobID string, report *model.CompletionReport) (*model.Job, error)
	// Stats returns per-state job counts.
	Stats(ctx context.Context) (*model.JobStats, error)
}

// StuckJobSweeper defines the optional requeue extension for jobs held by
// crashed workers. Not part of the core assignment protocol.
type StuckJobSweeper interface {
	// RequeueStuck returns assigned/transcribing jobs older than maxAge to
	// requested state and reports how many were requeued.
	RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error)
}

// AccountRepository defines the interface for the credential store.
type AccountRepository interface {
	Create(ctx context.Context, req *model.CreateAccountRequest, apiKey string) (*model.Account, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
}

// PayloadStore defines the interface for raw payload storage.
type PayloadStore interface {
	// Store persists the payload under the given key. Storing identical
	// content under the same key is a safe overwrite.
	Store(ctx context.Context, key string, payload []byte) (string, error)
	// Fetch returns the payload stored under locator.
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// CacheRepository defines the interface for cache operations backing the
// API-key resolution cache and the rate limiter.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	// Increment atomically increments a counter, setting ttl on first use,
	// and returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
