package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/testutil"
)

func TestAccountRepo_Create(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewAccountRepo(db, RepoConfig{})

		account, err := repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("carol").WithRegisteredFrom("10.0.0.3").Build(),
			"carol-api-key")
		require.NoError(t, err)
		assert.Equal(t, "carol", account.Username)
		assert.Equal(t, "carol-api-key", account.APIKey)
		assert.Equal(t, 0, account.Kudos)
		assert.Equal(t, "10.0.0.3", account.RegisteredFrom)
		assert.False(t, account.IsAdmin)
		assert.False(t, account.CreatedAt.IsZero())

		// Duplicate username is a conflict.
		_, err = repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("carol").Build(),
			"other-key")
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		// Duplicate API key is a conflict too.
		_, err = repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("dave").Build(),
			"carol-api-key")
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestAccountRepo_Create_Validation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewAccountRepo(db, RepoConfig{})

		_, err := repo.Create(context.Background(), nil, "key")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		_, err = repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("").Build(), "key")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		_, err = repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("eve").Build(), "")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestAccountRepo_GetByAPIKey(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewAccountRepo(db, RepoConfig{})

		_, err := repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("frank").Build(),
			"frank-key")
		require.NoError(t, err)

		account, err := repo.GetByAPIKey(context.Background(), "frank-key")
		require.NoError(t, err)
		assert.Equal(t, "frank", account.Username)

		_, err = repo.GetByAPIKey(context.Background(), "no-such-key")
		require.Error(t, err)
		assert.True(t, apperrors.IsUnauthorized(err))

		_, err = repo.GetByAPIKey(context.Background(), "")
		require.Error(t, err)
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestAccountRepo_GetByUsername(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewAccountRepo(db, RepoConfig{})

		_, err := repo.Create(context.Background(),
			testutil.NewAccountRequest().WithUsername("grace").Build(),
			"grace-key")
		require.NoError(t, err)

		account, err := repo.GetByUsername(context.Background(), "grace")
		require.NoError(t, err)
		assert.Equal(t, "grace-key", account.APIKey)

		_, err = repo.GetByUsername(context.Background(), "nobody")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
