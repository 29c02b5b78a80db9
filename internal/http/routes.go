package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs *service.JobService
	Auth *service.AuthService

	// Cache backs the rate limiter. Optional; nil disables throttling.
	Cache core.CacheRepository

	MaxUploadBytes  int64
	RateLimitWindow time.Duration
	RateLimitMax    int

	Logger *slog.Logger // Logger for HTTP middleware (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs, MaxUploadBytes: services.MaxUploadBytes}
	accountHandlers := &AccountHandlers{Svc: services.Auth}

	authed := RequireAPIKey(services.Auth)
	limited := RateLimit(RateLimitOptions{
		Cache:  services.Cache,
		Window: services.RateLimitWindow,
		Max:    services.RateLimitMax,
		Logger: services.Logger,
	})

	// Submission routes carry both auth and rate limiting.
	mux.Handle("POST /api/jobs", limited(authed(http.HandlerFunc(jobHandlers.SubmitJob))))
	mux.Handle("POST /api/jobs/upload", limited(authed(http.HandlerFunc(jobHandlers.SubmitUpload))))

	// Worker protocol routes.
	mux.Handle("POST /api/jobs/claim", authed(http.HandlerFunc(jobHandlers.Claim)))
	mux.Handle("POST /api/jobs/{id}/progress", authed(http.HandlerFunc(jobHandlers.ReportProgress)))
	mux.Handle("POST /api/jobs/{id}/complete", authed(http.HandlerFunc(jobHandlers.ReportCompletion)))

	// Retrieval routes.
	mux.Handle("GET /api/jobs/stats", authed(http.HandlerFunc(jobHandlers.GetStats)))
	mux.Handle("GET /api/jobs/{id}", authed(http.HandlerFunc(jobHandlers.GetJob)))
	mux.Handle("GET /api/jobs/{id}/status", authed(http.HandlerFunc(jobHandlers.GetStatus)))
	mux.Handle("GET /api/transcripts", authed(http.HandlerFunc(jobHandlers.GetTranscripts)))

	// Registration is the one unauthenticated mutation; it is rate limited.
	mux.Handle("POST /api/accounts", limited(http.HandlerFunc(accountHandlers.Register)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}

	return handler
}
