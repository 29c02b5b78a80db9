package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b0vik/subgencluster-api-server/config"
	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/observability/metrics"
	"github.com/b0vik/subgencluster-api-server/internal/observability/statsd"
)

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Repo    core.StuckJobSweeper // Required: sweeper repository
	Config  config.SweeperConfig // Required: sweeper configuration
	Logger  *slog.Logger         // Optional: structured logger
	Metrics statsd.Sink          // Optional: metrics sink (StatsD-compatible)
}

// SweeperService periodically returns jobs stuck in assigned or transcribing
// state to the queue. The core assignment protocol has no lease: a claimed
// job stays with its worker indefinitely. Running this service is an
// explicit operator opt-in that trades that guarantee for liveness when
// workers crash.
type SweeperService struct {
	repo    core.StuckJobSweeper
	config  config.SweeperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("StuckJobSweeper repository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
		logger.Debug("SweeperService initialized",
			"interval", opts.Config.Interval,
			"max_assignment_age", opts.Config.MaxAssignmentAge,
		)
	}

	return &SweeperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewSweeperService constructs a new SweeperService and panics on error.
func MustNewSweeperService(opts SweeperServiceOptions) *SweeperService {
	svc, err := NewSweeperService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create SweeperService: %v", err))
	}
	return svc
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service",
			"interval", s.config.Interval,
			"max_assignment_age", s.config.MaxAssignmentAge,
		)
	}

	// Jitter prevents thundering herd if multiple instances start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logSweepError(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				// Keep running despite errors.
				s.logSweepError(ctx, err)
			}
		}
	}
}

// Sweep runs a single requeue pass. Exposed for one-shot invocation and tests.
func (s *SweeperService) Sweep(ctx context.Context) (int64, error) {
	return s.repo.RequeueStuck(ctx, s.config.MaxAssignmentAge)
}

func (s *SweeperService) sweep(ctx context.Context) error {
	requeued, err := s.Sweep(ctx)
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Event:  metrics.EventRequeue,
			Result: metrics.ResultError,
			Err:    err,
		})
		return fmt.Errorf("requeue stuck jobs: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Count("sweeper.requeued", requeued, nil)
	}

	if requeued > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "requeued stuck jobs",
			"count", requeued,
			"max_assignment_age", s.config.MaxAssignmentAge,
		)
	}

	return nil
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *SweeperService) logSweepError(ctx context.Context, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "error", err)
	}
}
