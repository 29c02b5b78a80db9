package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Accounts core.AccountRepository // Required: credential store
	Cache    core.CacheRepository   // Optional: API-key resolution cache
	CacheTTL time.Duration          // Optional: cache entry lifetime (default 5m)
	Logger   *slog.Logger           // Optional: structured logger
}

// AuthService resolves API keys to accounts and registers new accounts.
// Resolution consults a cache first; cache failures degrade to direct
// database lookups rather than failing the request.
type AuthService struct {
	accounts core.AccountRepository
	cache    core.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Accounts == nil {
		return nil, errors.New("AccountRepository is required")
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "auth_service")
	}

	return &AuthService{
		accounts: opts.Accounts,
		cache:    opts.Cache,
		cacheTTL: ttl,
		logger:   logger,
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create AuthService: %v", err))
	}
	return svc
}

// Resolve returns the account owning the given API key, or Unauthorized.
func (s *AuthService) Resolve(ctx context.Context, apiKey string) (*model.Account, error) {
	if apiKey == "" {
		return nil, apperrors.Unauthorized("api key is required")
	}

	cacheKey := apiKeyCacheKey(apiKey)
	if account := s.cachedAccount(ctx, cacheKey); account != nil {
		return account, nil
	}

	account, err := s.accounts.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	s.cacheAccount(ctx, cacheKey, account)
	return account, nil
}

// Register creates a new account and issues its API key. The key is returned
// exactly once; only its owner ever sees it again.
func (s *AuthService) Register(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	apiKey := uuid.NewString()
	account, err := s.accounts.Create(ctx, req, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "account registered",
			"username", account.Username,
			"registered_from", account.RegisteredFrom,
		)
	}

	return account, nil
}

func (s *AuthService) cachedAccount(ctx context.Context, cacheKey string) *model.Account {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "api key cache read failed", "error", err)
		}
		return nil
	}
	if data == nil {
		return nil
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "api key cache entry corrupt, dropping", "error", err)
		}
		_, _ = s.cache.Delete(ctx, cacheKey)
		return nil
	}
	return &account
}

func (s *AuthService) cacheAccount(ctx context.Context, cacheKey string, account *model.Account) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil && s.logger != nil {
		s.logger.DebugContext(ctx, "api key cache write failed", "error", err)
	}
}

// apiKeyCacheKey derives the cache key from a digest of the API key so the
// raw credential never appears in Redis.
func apiKeyCacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "auth:apikey:" + hex.EncodeToString(sum[:])
}
