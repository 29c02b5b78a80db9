package data

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
)

// RepoConfig holds configuration options for the data-layer repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job management. It exclusively
// owns persisted job state; every accepted transition is committed before the
// call returns.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  requesting_user,
  requested_model,
  job_kind,
  source_locator,
  content_hash,
  status,
  assigned_worker,
  transcript,
  progress,
  estimated_total_seconds,
  live_transcribe,
  requested_at,
  assigned_at,
  completed_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

// jobRowData holds the nullable columns of a job row during scanning.
type jobRowData struct {
	contentHash, assignedWorker sql.NullString
	transcript                  sql.NullString
	progress, estimatedTotal    sql.NullFloat64
	assignedAt, completedAt     sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.RequestingUser,
		&job.RequestedModel,
		&job.Kind,
		&job.SourceLocator,
		&d.contentHash,
		&job.Status,
		&d.assignedWorker,
		&d.transcript,
		&d.progress,
		&d.estimatedTotal,
		&job.LiveTranscribe,
		&job.RequestedAt,
		&d.assignedAt,
		&d.completedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.ContentHash = nullableString(d.contentHash)
	job.AssignedWorker = nullableString(d.assignedWorker)
	if d.transcript.Valid {
		job.Transcript = d.transcript.String
	}
	job.Progress = nullableFloat(d.progress)
	job.EstimatedTotal = nullableFloat(d.estimatedTotal)
	job.AssignedAt = nullableTime(d.assignedAt)
	job.CompletedAt = nullableTime(d.completedAt)
	job.RequestedAt = job.RequestedAt.UTC()
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
