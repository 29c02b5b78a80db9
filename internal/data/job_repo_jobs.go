package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainjob "github.com/b0vik/subgencluster-api-server/internal/domain/job"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/data/pgxutil"
)

// SQL used by ClaimNext to atomically hand the oldest requested job to a
// single caller. FOR UPDATE SKIP LOCKED guarantees concurrent claimers never
// receive the same row; ordering is FIFO on submission time.
const claimNextSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE status = 'requested'
    ORDER BY requested_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'assigned',
    assigned_worker = $1,
    assigned_at = $2
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.requesting_user, j.requested_model, j.job_kind, j.source_locator, j.content_hash, j.status, j.assigned_worker, j.transcript, j.progress, j.estimated_total_seconds, j.live_transcribe, j.requested_at, j.assigned_at, j.completed_at`

// Create persists a new job in requested state.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job submission")
	}

	id := uuid.NewString()
	requestedAt := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO jobs(id, requesting_user, requested_model, job_kind, source_locator, content_hash, status, transcript, live_transcribe, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'requested', '', $7, $8)
		RETURNING `+jobColumns,
		id,
		req.RequestingUser,
		req.RequestedModel,
		req.Kind,
		req.SourceLocator,
		req.ContentHash,
		req.LiveTranscribe,
		requestedAt,
	)

	job, err := scanJobFromRow(row)
	if err != nil {
		return nil, mapPgError(err, "insert job")
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"kind", job.Kind,
			"model", job.RequestedModel,
		)
	}

	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByIdentity returns all jobs matching the given external identity and
// status, ordered by submission time ascending. Zero matches is an empty
// slice, not an error.
func (r *JobRepo) FindByIdentity(
	ctx context.Context,
	q model.IdentityQuery,
	status model.JobStatus,
) ([]*model.Job, error) {
	if err := q.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid identity query")
	}
	if !status.Valid() {
		return nil, apperrors.Validationf("invalid status %q", status)
	}

	identityColumn := "source_locator"
	if q.Kind == model.JobKindFile {
		identityColumn = "content_hash"
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE job_kind = $1 AND `+identityColumn+` = $2 AND status = $3
		ORDER BY requested_at ASC, id ASC
	`, q.Kind, q.Key, status)
	if err != nil {
		return nil, fmt.Errorf("find jobs by identity: %w", err)
	}
	defer rows.Close()

	jobs := []*model.Job{}
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate jobs: %w", rowsErr)
	}

	return jobs, nil
}

// ClaimNext atomically transitions one requested job to assigned for the
// given worker. Behaves as if executed under a single global lock with
// respect to other claims.
func (r *JobRepo) ClaimNext(ctx context.Context, workerID string) (*model.Job, error) {
	if workerID == "" {
		return nil, apperrors.Validation("worker id is required")
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			assignedAt := r.timeProvider.Now().UTC()

			rows, qerr := tx.Query(ctx, claimNextSQL, workerID, assignedAt)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job claimed", "id", job.ID, "worker", workerID)
	}

	return job, nil
}

// ReportProgress applies a progress event from the assigned worker. The
// guards from the lifecycle engine are carried in the UPDATE predicate so the
// transition either commits whole or has no effect.
func (r *JobRepo) ReportProgress(
	ctx context.Context,
	jobID string,
	report *model.ProgressReport,
) (*model.Job, error) {
	if report == nil {
		return nil, apperrors.Validation("progress report is required")
	}
	if err := report.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid progress report")
	}

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'transcribing',
		    transcript = $3,
		    progress = $4,
		    estimated_total_seconds = $5
		WHERE id = $1
		  AND assigned_worker = $2
		  AND status IN ('assigned', 'transcribing')
		RETURNING `+jobColumns,
		jobID,
		report.WorkerID,
		report.Transcript,
		report.Progress,
		report.EstimatedTotal,
	)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.classifyRejectedEvent(ctx, jobID, domainjob.EventProgress, report.WorkerID)
	}
	if err != nil {
		return nil, fmt.Errorf("report progress: %w", err)
	}
	return job, nil
}

// ReportCompletion applies the one-shot completion event from the assigned
// worker, freezing the transcript. A second completion matches no row and is
// rejected without touching the job.
func (r *JobRepo) ReportCompletion(
	ctx context.Context,
	jobID string,
	report *model.CompletionReport,
) (*model.Job, error) {
	if report == nil {
		return nil, apperrors.Validation("completion report is required")
	}
	if err := report.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid completion report")
	}

	completedAt := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    transcript = $3,
		    completed_at = $4
		WHERE id = $1
		  AND assigned_worker = $2
		  AND status IN ('assigned', 'transcribing')
		RETURNING `+jobColumns,
		jobID,
		report.WorkerID,
		report.Transcript,
		completedAt,
	)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.classifyRejectedEvent(ctx, jobID, domainjob.EventComplete, report.WorkerID)
	}
	if err != nil {
		return nil, fmt.Errorf("report completion: %w", err)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job completed", "id", job.ID, "worker", report.WorkerID)
	}

	return job, nil
}

// classifyRejectedEvent distinguishes an unknown job from an illegal
// transition after a guarded UPDATE matched no row.
func (r *JobRepo) classifyRejectedEvent(
	ctx context.Context,
	jobID string,
	ev domainjob.Event,
	workerID string,
) error {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if checkErr := domainjob.CheckWorkerEvent(job, ev, workerID); checkErr != nil {
		return checkErr
	}
	// The guards passed on re-read, so the UPDATE lost a race with a
	// concurrent transition on the same job.
	return apperrors.InvalidTransitionf("job %s changed state concurrently", jobID)
}

// Stats returns counts of jobs in each lifecycle state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'requested')    AS requested,
    count(*) FILTER (WHERE status = 'assigned')     AS assigned,
    count(*) FILTER (WHERE status = 'transcribing') AS transcribing,
    count(*) FILTER (WHERE status = 'completed')    AS completed
  FROM jobs
  `).Scan(
		&s.Requested,
		&s.Assigned,
		&s.Transcribing,
		&s.Completed,
	)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// Advisory lock keys for RequeueStuck so concurrent broker instances do not
// double-sweep.
const (
	advisoryLockSweepMajor int64 = 2001
	advisoryLockSweepMinor int64 = 1
)

// RequeueStuck returns assigned/transcribing jobs older than maxAge to
// requested state. This is the opt-in sweeper extension, not part of the core
// assignment protocol: with the sweeper disabled a claimed job is held
// indefinitely.
func (r *JobRepo) RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperrors.Validation("max age must be positive")
	}

	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()

	var rowsAffected int64
	err := withSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		var locked bool
		if lockErr := tx.QueryRowContext(ctx,
			"SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
			advisoryLockSweepMajor, advisoryLockSweepMinor,
		).Scan(&locked); lockErr != nil {
			return fmt.Errorf("acquire advisory lock: %w", lockErr)
		}
		if !locked {
			rowsAffected = 0
			return nil
		}

		res, execErr := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'requested', assigned_worker = NULL, assigned_at = NULL
		WHERE status IN ('assigned', 'transcribing')
		  AND assigned_at IS NOT NULL
		  AND assigned_at < $1
	`, cutoff)
		if execErr != nil {
			return fmt.Errorf("requeue stuck jobs: %w", execErr)
		}
		ra, raErr := res.RowsAffected()
		if raErr != nil {
			return fmt.Errorf("rows affected: %w", raErr)
		}
		rowsAffected = ra
		return nil
	})
	if err != nil {
		return 0, err
	}

	if rowsAffected > 0 && r.logger != nil {
		r.logger.InfoContext(ctx, "requeued stuck jobs", "count", rowsAffected, "cutoff", cutoff)
	}

	return rowsAffected, nil
}

// withSQLTx runs fn within a database/sql transaction.
func withSQLTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
