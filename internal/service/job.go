package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/domain/dedupe"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/observability/metrics"
	"github.com/b0vik/subgencluster-api-server/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo     core.JobRepository // Required: job repository
	Payloads core.PayloadStore  // Required for uploads: payload storage
	Logger   *slog.Logger       // Optional: structured logger
	Metrics  statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// JobService provides business logic for the transcription job broker.
//
// This service manages:
// - Job submission (public URL and deduplicated file uploads)
// - Worker claim/progress/completion reporting
// - Transcript retrieval by job id and by external identity.
type JobService struct {
	repo     core.JobRepository
	payloads core.PayloadStore
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:     opts.Repo,
		payloads: opts.Payloads,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Submit creates a new job in requested state from a client submission.
func (s *JobService) Submit(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.repo.Create(ctx, req)
	if err != nil {
		s.emit(metrics.JobMetric{JobKind: string(req.Kind), Event: metrics.EventSubmit, Result: metrics.ResultError, Err: err})
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.emit(metrics.JobMetric{JobKind: string(job.Kind), Event: metrics.EventSubmit, Result: metrics.ResultSuccess})

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job submitted",
			"id", job.ID,
			"kind", job.Kind,
			"model", job.RequestedModel,
		)
	}

	return job, nil
}

// UploadSubmission groups parameters for a file-upload job submission.
type UploadSubmission struct {
	RequestingUser string
	RequestedModel model.TranscriptionModel
	Filename       string
	Payload        []byte
	LiveTranscribe bool
}

// SubmitUpload stores an uploaded payload and creates a file-kind job keyed
// by the payload's content hash. Identical bytes always produce the same
// hash, so repeated uploads of the same content share one stored payload and
// one retrieval identity while still creating distinct jobs.
func (s *JobService) SubmitUpload(ctx context.Context, in UploadSubmission) (*model.Job, error) {
	if s.payloads == nil {
		return nil, apperrors.Internal("payload store not configured")
	}
	if len(in.Payload) == 0 {
		return nil, apperrors.ValidationField("payload", "uploaded file is empty")
	}

	hash := dedupe.Hash(in.Payload)
	key := dedupe.StorageKey(hash, in.Filename)

	locator, err := s.payloads.Store(ctx, key, in.Payload)
	if err != nil {
		return nil, fmt.Errorf("store payload: %w", err)
	}

	req := &model.CreateJobRequest{
		RequestingUser: in.RequestingUser,
		RequestedModel: in.RequestedModel,
		Kind:           model.JobKindFile,
		SourceLocator:  locator,
		ContentHash:    &hash,
		LiveTranscribe: in.LiveTranscribe,
	}

	job, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "upload stored",
			"id", job.ID,
			"content_hash", hash,
			"bytes", len(in.Payload),
		)
	}

	return job, nil
}

// Claim atomically assigns the next requested job to the given worker.
// An empty queue is not an error: the returned ClaimedJob carries the
// distinguished "none" kind so polling workers can back off and retry.
func (s *JobService) Claim(ctx context.Context, workerID string) (*model.ClaimedJob, error) {
	if workerID == "" {
		return nil, apperrors.ValidationField("worker_id", "worker id is required")
	}

	start := time.Now()
	job, err := s.repo.ClaimNext(ctx, workerID)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			s.emit(metrics.JobMetric{Event: metrics.EventClaim, Result: metrics.ResultEmpty})
			return model.NoJob(), nil
		}
		s.emit(metrics.JobMetric{Event: metrics.EventClaim, Result: metrics.ResultError, Err: err})
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	s.emit(metrics.JobMetric{
		JobKind:  string(job.Kind),
		Event:    metrics.EventClaim,
		Result:   metrics.ResultSuccess,
		Duration: time.Since(start),
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job claimed",
			"id", job.ID,
			"worker", workerID,
			"kind", job.Kind,
		)
	}

	return &model.ClaimedJob{
		JobID:          job.ID,
		Kind:           job.Kind,
		SourceLocator:  job.SourceLocator,
		ContentHash:    job.ContentHash,
		RequestedModel: job.RequestedModel,
		LiveTranscribe: job.LiveTranscribe,
		RequestedAt:    &job.RequestedAt,
	}, nil
}

// ReportProgress applies a worker progress update to an in-flight job.
// The first accepted report moves the job to transcribing; subsequent reports
// overwrite the partial transcript and telemetry last-write-wins.
func (s *JobService) ReportProgress(ctx context.Context, jobID string, report *model.ProgressReport) (*model.Job, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	if err := report.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.repo.ReportProgress(ctx, jobID, report)
	if err != nil {
		s.emit(metrics.JobMetric{Event: metrics.EventProgress, Result: metrics.ResultError, Err: err})
		return nil, fmt.Errorf("report progress: %w", err)
	}

	s.emit(metrics.JobMetric{JobKind: string(job.Kind), Event: metrics.EventProgress, Result: metrics.ResultSuccess})

	return job, nil
}

// ReportCompletion applies a worker's final transcript. Completion is
// one-shot: once a job is completed every further event against it fails
// and the stored transcript never changes.
func (s *JobService) ReportCompletion(ctx context.Context, jobID string, report *model.CompletionReport) (*model.Job, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	if err := report.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.repo.ReportCompletion(ctx, jobID, report)
	if err != nil {
		s.emit(metrics.JobMetric{Event: metrics.EventComplete, Result: metrics.ResultError, Err: err})
		return nil, fmt.Errorf("report completion: %w", err)
	}

	s.emit(metrics.JobMetric{JobKind: string(job.Kind), Event: metrics.EventComplete, Result: metrics.ResultSuccess})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job completed",
			"id", job.ID,
			"worker", report.WorkerID,
		)
	}

	return job, nil
}

// RetrieveByID returns the summary of a completed job. Jobs that do not
// exist or have not completed yet both surface as NotFound.
func (s *JobService) RetrieveByID(ctx context.Context, jobID string) (*model.JobSummary, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.Status != model.JobStatusCompleted {
		return nil, apperrors.NotFoundf("no completed job with id %s", jobID)
	}

	return job.Summary(), nil
}

// RetrieveByIdentity returns summaries of all completed jobs matching the
// external identity, ordered by submission time ascending. Zero matches is
// an empty result, not an error.
func (s *JobService) RetrieveByIdentity(ctx context.Context, q model.IdentityQuery) ([]*model.JobSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	jobs, err := s.repo.FindByIdentity(ctx, q, model.JobStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}

	summaries := make([]*model.JobSummary, len(jobs))
	for i, job := range jobs {
		summaries[i] = job.Summary()
	}
	return summaries, nil
}

// GetStatus returns the current state and telemetry of a job at any
// lifecycle stage.
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	return &model.JobStatusResponse{
		Status:         job.Status,
		Kind:           job.Kind,
		RequestedModel: job.RequestedModel,
		Transcript:     job.Transcript,
		Progress:       job.Progress,
		EstimatedTotal: job.EstimatedTotal,
		RequestedAt:    job.RequestedAt,
	}, nil
}

// Stats returns per-state job counts.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

func (s *JobService) emit(in metrics.JobMetric) {
	metrics.EmitJobLifecycle(s.metrics, in)
}
