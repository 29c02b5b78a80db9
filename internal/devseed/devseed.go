// Package devseed populates a development database with accounts and sample
// transcription jobs. It is idempotent: existing rows are left alone.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/b0vik/subgencluster-api-server/internal/data"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB       *sql.DB
	accounts *data.AccountRepo
	jobs     *data.JobRepo
}

// NewServices constructs the repositories used for seeding against the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:       db,
		accounts: data.NewAccountRepo(db, data.RepoConfig{}),
		jobs:     data.NewJobRepo(db, data.RepoConfig{}),
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	failures += seedAccounts(ctx, svcs.accounts, logger)
	failures += seedJobs(ctx, svcs, logger)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

type seedAccount struct {
	Username string
	APIKey   string
}

// devAccounts are the well-known credentials for local development. The fixed
// API keys let curl scripts and worker configs survive database resets.
var devAccounts = []seedAccount{
	{Username: "dev-client", APIKey: "dev-client-key"},
	{Username: "dev-worker", APIKey: "dev-worker-key"},
}

func seedAccounts(ctx context.Context, repo *data.AccountRepo, logger *slog.Logger) int {
	failures := 0
	for _, acct := range devAccounts {
		_, err := repo.Create(ctx, &model.CreateAccountRequest{
			Username:       acct.Username,
			RegisteredFrom: "devseed",
		}, acct.APIKey)
		if apperrors.IsConflict(err) {
			if logger != nil {
				logger.InfoContext(ctx, "account already exists", "username", acct.Username)
			}
			continue
		}
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create account", "username", acct.Username, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "account created", "username", acct.Username)
		}
	}
	return failures
}

// devJobURLs are the sample submissions. Seeding is skipped for any URL that
// already has a job so repeated runs do not grow the queue.
var devJobURLs = []string{
	"https://example.com/devseed/interview.mp3",
	"https://example.com/devseed/lecture.mp4",
	"https://example.com/devseed/podcast-episode-1.ogg",
}

func seedJobs(ctx context.Context, svcs Services, logger *slog.Logger) int {
	failures := 0
	for _, url := range devJobURLs {
		existing, err := svcs.jobs.FindByIdentity(ctx, model.IdentityQuery{
			Kind: model.JobKindPublicURL,
			Key:  url,
		}, model.JobStatusRequested)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to check existing jobs", "url", url, "error", err)
			}
			failures++
			continue
		}
		if len(existing) > 0 {
			if logger != nil {
				logger.InfoContext(ctx, "job already queued", "url", url)
			}
			continue
		}

		job, err := svcs.jobs.Create(ctx, &model.CreateJobRequest{
			RequestingUser: "dev-client",
			RequestedModel: "base",
			Kind:           model.JobKindPublicURL,
			SourceLocator:  url,
		})
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create job", "url", url, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "job created", "id", job.ID, "url", url)
		}
	}
	return failures
}
