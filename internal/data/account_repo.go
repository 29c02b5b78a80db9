package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

// AccountRepo provides database operations for the credential store.
// Accounts are immutable after registration except for the kudos score.
type AccountRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewAccountRepo creates a new AccountRepo with the given database connection and configuration.
func NewAccountRepo(db *sql.DB, cfg RepoConfig) *AccountRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &AccountRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const accountColumns = `
  username,
  api_key,
  kudos,
  registered_from,
  is_admin,
  created_at
`

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	if err := scanner.Scan(
		&a.Username,
		&a.APIKey,
		&a.Kudos,
		&a.RegisteredFrom,
		&a.IsAdmin,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// Create registers a new account with the given API key. A duplicate username
// or API key surfaces as a Conflict error.
func (r *AccountRepo) Create(
	ctx context.Context,
	req *model.CreateAccountRequest,
	apiKey string,
) (*model.Account, error) {
	if req == nil {
		return nil, apperrors.Validation("create account request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid registration")
	}
	if apiKey == "" {
		return nil, apperrors.Validation("api key is required")
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO accounts(username, api_key, kudos, registered_from, is_admin, created_at)
		VALUES ($1, $2, 0, $3, FALSE, $4)
		RETURNING `+accountColumns,
		req.Username,
		apiKey,
		req.RegisteredFrom,
		r.timeProvider.Now().UTC(),
	)

	account, err := scanAccount(row)
	if err != nil {
		return nil, mapPgError(err, "insert account")
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "account registered", "username", account.Username)
	}

	return account, nil
}

// GetByAPIKey resolves an API key to its account. An unknown key is an
// Unauthorized error, matching the credential-store contract.
func (r *AccountRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	if apiKey == "" {
		return nil, apperrors.Unauthorized("api key is required")
	}

	row := r.DB.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE api_key = $1
	`, apiKey)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Unauthorized("unknown api key")
	}
	if err != nil {
		return nil, fmt.Errorf("get account by api key: %w", err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = $1
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("account %s not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return account, nil
}
