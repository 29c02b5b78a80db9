package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type accountContextKey struct{}

// AccountFromContext returns the account resolved by RequireAPIKey, if any.
func AccountFromContext(ctx context.Context) *model.Account {
	account, _ := ctx.Value(accountContextKey{}).(*model.Account)
	return account
}

// apiKeyFromRequest extracts the caller's API key. Authorization: Bearer is
// preferred; the X-API-Key header is accepted for worker compatibility.
func apiKeyFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// RequireAPIKey returns a middleware that resolves the caller's API key to an
// account and rejects the request with 401 when resolution fails.
func RequireAPIKey(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFromRequest(r)
			if key == "" {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: string(apperrors.ErrCodeUnauthorized),
					Err:     errors.New("api key required"),
				})
				return
			}

			account, err := authSvc.Resolve(r.Context(), key)
			if err != nil {
				WriteAppError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitOptions configures the fixed-window rate limit middleware.
type RateLimitOptions struct {
	Cache  core.CacheRepository
	Window time.Duration
	Max    int // Zero disables the limiter.
	Logger *slog.Logger
}

// RateLimit returns a middleware enforcing a per-caller fixed-window request
// limit backed by the cache's atomic counter. When the cache is unavailable
// the request is allowed through; throttling is best-effort protection, not
// a correctness guarantee.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if opts.Cache == nil || opts.Max <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := apiKeyFromRequest(r)
			if caller == "" {
				caller = r.RemoteAddr
			}

			count, err := opts.Cache.Increment(r.Context(), "ratelimit:"+caller, opts.Window)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.DebugContext(r.Context(), "rate limit counter unavailable", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(opts.Max) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(opts.Window.Seconds())))
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Err:     fmt.Errorf("rate limit exceeded: %d requests per %s", opts.Max, opts.Window),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
