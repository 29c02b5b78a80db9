package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/mocks"
)

func TestNewAuthService_RequiresAccounts(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{})
	require.Error(t, err)
}

func TestAuthService_Resolve_CacheMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts, Cache: cache, CacheTTL: time.Minute})

	account := &model.Account{Username: "alice", Kudos: 10}

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	accounts.EXPECT().GetByAPIKey(gomock.Any(), "key-1").Return(account, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Minute).Return(nil)

	resolved, err := svc.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}

func TestAuthService_Resolve_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts, Cache: cache})

	cached, err := json.Marshal(&model.Account{Username: "alice"})
	require.NoError(t, err)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cached, nil)
	// No repository call expected.

	resolved, err := svc.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}

func TestAuthService_Resolve_CacheFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts, Cache: cache})

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	accounts.EXPECT().GetByAPIKey(gomock.Any(), "key-1").Return(&model.Account{Username: "alice"}, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	resolved, err := svc.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}

func TestAuthService_Resolve_CorruptCacheEntryDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts, Cache: cache})

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte("{not json"), nil)
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(true, nil)
	accounts.EXPECT().GetByAPIKey(gomock.Any(), "key-1").Return(&model.Account{Username: "alice"}, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	resolved, err := svc.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}

func TestAuthService_Resolve_Unknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts})

	accounts.EXPECT().GetByAPIKey(gomock.Any(), "wrong").
		Return(nil, apperrors.Unauthorized("unknown api key"))

	_, err := svc.Resolve(context.Background(), "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_Resolve_EmptyKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := MustNewAuthService(AuthServiceOptions{Accounts: mocks.NewMockAccountRepository(ctrl)})

	_, err := svc.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts})

	req := &model.CreateAccountRequest{Username: "alice", RegisteredFrom: "10.0.0.1"}

	accounts.EXPECT().Create(gomock.Any(), req, gomock.Any()).DoAndReturn(
		func(_ context.Context, r *model.CreateAccountRequest, apiKey string) (*model.Account, error) {
			assert.NotEmpty(t, apiKey)
			return &model.Account{Username: r.Username, APIKey: apiKey}, nil
		})

	account, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.NotEmpty(t, account.APIKey)
}

func TestAuthService_Register_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := MustNewAuthService(AuthServiceOptions{Accounts: mocks.NewMockAccountRepository(ctrl)})

	_, err := svc.Register(context.Background(), &model.CreateAccountRequest{Username: "  "})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	svc := MustNewAuthService(AuthServiceOptions{Accounts: accounts})

	accounts.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Conflict("username already registered"))

	_, err := svc.Register(context.Background(), &model.CreateAccountRequest{Username: "alice"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}
