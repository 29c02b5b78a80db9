package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/testutil"
)

// seedAccount registers an account so job rows can reference it.
func seedAccount(t *testing.T, db *sql.DB, username string) {
	t.Helper()
	repo := NewAccountRepo(db, RepoConfig{})
	_, err := repo.Create(context.Background(),
		testutil.NewAccountRequest().WithUsername(username).Build(),
		"key-"+username)
	require.NoError(t, err)
}

func TestJobRepo_Create(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	tests := []struct {
		name     string
		req      *model.CreateJobRequest
		wantErr  bool
		wantCode apperrors.ErrorCode
	}{
		{
			name: "public url job",
			req:  testutil.NewJobRequest().WithUser("alice").Build(),
		},
		{
			name: "file job with content hash",
			req: testutil.NewJobRequest().
				WithUser("alice").
				WithUpload("deadbeef.mp4", "deadbeef").
				Build(),
		},
		{
			name: "live transcription job",
			req: testutil.NewJobRequest().
				WithUser("alice").
				WithLiveTranscribe(true).
				Build(),
		},
		{
			name:     "nil request",
			req:      nil,
			wantErr:  true,
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name: "unknown model",
			req: testutil.NewJobRequest().
				WithUser("alice").
				WithModel("gigantic-v9").
				Build(),
			wantErr:  true,
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "unregistered user violates foreign key",
			req:      testutil.NewJobRequest().WithUser("nobody").Build(),
			wantErr:  true,
			wantCode: apperrors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.WithTestDB(t, func(db *sql.DB) {
				seedAccount(t, db, "alice")
				repo := NewJobRepo(db, RepoConfig{})

				job, err := repo.Create(context.Background(), tt.req)
				if tt.wantErr {
					require.Error(t, err)
					assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
					return
				}

				require.NoError(t, err)
				assert.NotEmpty(t, job.ID)
				assert.Equal(t, model.JobStatusRequested, job.Status)
				assert.Nil(t, job.AssignedWorker)
				assert.Empty(t, job.Transcript)
				assert.False(t, job.RequestedAt.IsZero())
			})
		})
	}
}

func TestJobRepo_GetByID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")
		repo := NewJobRepo(db, RepoConfig{})

		created, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").Build())
		require.NoError(t, err)

		got, err := repo.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.SourceLocator, got.SourceLocator)

		_, err = repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_ClaimNext_FIFO(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")

		tp := NewFixedTimeProvider(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})

		first, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").WithSourceURL("https://example.com/a.mp3").Build())
		require.NoError(t, err)

		tp.AddTime(time.Second)
		second, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").WithSourceURL("https://example.com/b.mp3").Build())
		require.NoError(t, err)

		claimed1, err := repo.ClaimNext(context.Background(), "worker-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, claimed1.ID)
		assert.Equal(t, model.JobStatusAssigned, claimed1.Status)
		require.NotNil(t, claimed1.AssignedWorker)
		assert.Equal(t, "worker-1", *claimed1.AssignedWorker)
		assert.NotNil(t, claimed1.AssignedAt)

		claimed2, err := repo.ClaimNext(context.Background(), "worker-2")
		require.NoError(t, err)
		assert.Equal(t, second.ID, claimed2.ID)

		_, err = repo.ClaimNext(context.Background(), "worker-3")
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)
	})
}

func TestJobRepo_ReportProgress(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")
		repo := NewJobRepo(db, RepoConfig{})

		created, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").Build())
		require.NoError(t, err)

		claimed, err := repo.ClaimNext(context.Background(), "worker-1")
		require.NoError(t, err)
		require.Equal(t, created.ID, claimed.ID)

		// First progress report moves assigned -> transcribing.
		job, err := repo.ReportProgress(context.Background(), created.ID, &model.ProgressReport{
			WorkerID:       "worker-1",
			Transcript:     "partial text",
			Progress:       testutil.Float64Ptr(0.25),
			EstimatedTotal: testutil.Float64Ptr(120),
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusTranscribing, job.Status)
		assert.Equal(t, "partial text", job.Transcript)
		require.NotNil(t, job.Progress)
		assert.InDelta(t, 0.25, *job.Progress, 0.0001)

		// Later reports overwrite the partial transcript.
		job, err = repo.ReportProgress(context.Background(), created.ID, &model.ProgressReport{
			WorkerID:   "worker-1",
			Transcript: "longer partial text",
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusTranscribing, job.Status)
		assert.Equal(t, "longer partial text", job.Transcript)

		// A different worker may not report on the job.
		_, err = repo.ReportProgress(context.Background(), created.ID, &model.ProgressReport{
			WorkerID:   "worker-2",
			Transcript: "hijack",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}

func TestJobRepo_ReportProgress_RequestedJobRejected(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")
		repo := NewJobRepo(db, RepoConfig{})

		created, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").Build())
		require.NoError(t, err)

		_, err = repo.ReportProgress(context.Background(), created.ID, &model.ProgressReport{
			WorkerID:   "worker-1",
			Transcript: "too early",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}

func TestJobRepo_ReportCompletion(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")
		repo := NewJobRepo(db, RepoConfig{})

		created, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").Build())
		require.NoError(t, err)

		_, err = repo.ClaimNext(context.Background(), "worker-1")
		require.NoError(t, err)

		job, err := repo.ReportCompletion(context.Background(), created.ID, &model.CompletionReport{
			WorkerID:   "worker-1",
			Transcript: "final transcript",
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, job.Status)
		assert.Equal(t, "final transcript", job.Transcript)
		assert.NotNil(t, job.CompletedAt)

		// Completion is one-shot; the frozen transcript never changes.
		_, err = repo.ReportCompletion(context.Background(), created.ID, &model.CompletionReport{
			WorkerID:   "worker-1",
			Transcript: "revised transcript",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))

		got, err := repo.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "final transcript", got.Transcript)

		// Progress reports after completion are rejected too.
		_, err = repo.ReportProgress(context.Background(), created.ID, &model.ProgressReport{
			WorkerID:   "worker-1",
			Transcript: "late",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}

func TestJobRepo_FindByIdentity(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")

		tp := NewFixedTimeProvider(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})

		const url = "https://example.com/episode-1.mp3"

		completeJob := func(req *model.CreateJobRequest) *model.Job {
			created, err := repo.Create(context.Background(), req)
			require.NoError(t, err)
			_, err = repo.ClaimNext(context.Background(), "worker-1")
			require.NoError(t, err)
			done, err := repo.ReportCompletion(context.Background(), created.ID, &model.CompletionReport{
				WorkerID:   "worker-1",
				Transcript: "transcript for " + created.ID,
			})
			require.NoError(t, err)
			return done
		}

		first := completeJob(testutil.NewJobRequest().WithUser("alice").WithSourceURL(url).Build())
		tp.AddTime(time.Second)
		second := completeJob(testutil.NewJobRequest().WithUser("alice").WithSourceURL(url).Build())

		// Still-requested job with the same URL must not appear.
		_, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").WithSourceURL(url).Build())
		require.NoError(t, err)

		jobs, err := repo.FindByIdentity(context.Background(),
			model.IdentityQuery{Kind: model.JobKindPublicURL, Key: url},
			model.JobStatusCompleted)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, first.ID, jobs[0].ID)
		assert.Equal(t, second.ID, jobs[1].ID)

		// File identity resolves by content hash.
		fileJob := completeJob(testutil.NewJobRequest().
			WithUser("alice").
			WithUpload("cafe0001.mp4", "cafe0001").
			Build())

		jobs, err = repo.FindByIdentity(context.Background(),
			model.IdentityQuery{Kind: model.JobKindFile, Key: "cafe0001"},
			model.JobStatusCompleted)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, fileJob.ID, jobs[0].ID)

		// Unknown identity yields an empty slice, not an error.
		jobs, err = repo.FindByIdentity(context.Background(),
			model.IdentityQuery{Kind: model.JobKindFile, Key: "ffffffff"},
			model.JobStatusCompleted)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		// Invalid query is a validation error.
		_, err = repo.FindByIdentity(context.Background(),
			model.IdentityQuery{Kind: "bogus", Key: "x"},
			model.JobStatusCompleted)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})
}

func TestJobRepo_Stats(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")
		repo := NewJobRepo(db, RepoConfig{})

		for i := 0; i < 3; i++ {
			_, err := repo.Create(context.Background(),
				testutil.NewJobRequest().WithUser("alice").Build())
			require.NoError(t, err)
		}

		claimed, err := repo.ClaimNext(context.Background(), "worker-1")
		require.NoError(t, err)
		_, err = repo.ReportCompletion(context.Background(), claimed.ID, &model.CompletionReport{
			WorkerID:   "worker-1",
			Transcript: "done",
		})
		require.NoError(t, err)

		_, err = repo.ClaimNext(context.Background(), "worker-2")
		require.NoError(t, err)

		stats, err := repo.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Requested)
		assert.Equal(t, 1, stats.Assigned)
		assert.Equal(t, 0, stats.Transcribing)
		assert.Equal(t, 1, stats.Completed)
	})
}

func TestJobRepo_RequeueStuck(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedAccount(t, db, "alice")

		tp := NewFixedTimeProvider(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})

		stale, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").WithSourceURL("https://example.com/stale.mp3").Build())
		require.NoError(t, err)
		_, err = repo.ClaimNext(context.Background(), "worker-gone")
		require.NoError(t, err)

		// A later claim stays within the age limit.
		tp.AddTime(time.Hour)
		fresh, err := repo.Create(context.Background(),
			testutil.NewJobRequest().WithUser("alice").WithSourceURL("https://example.com/fresh.mp3").Build())
		require.NoError(t, err)
		_, err = repo.ClaimNext(context.Background(), "worker-alive")
		require.NoError(t, err)

		requeued, err := repo.RequeueStuck(context.Background(), 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), requeued)

		staleJob, err := repo.GetByID(context.Background(), stale.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusRequested, staleJob.Status)
		assert.Nil(t, staleJob.AssignedWorker)
		assert.Nil(t, staleJob.AssignedAt)

		freshJob, err := repo.GetByID(context.Background(), fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusAssigned, freshJob.Status)

		_, err = repo.RequeueStuck(context.Background(), 0)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})
}
