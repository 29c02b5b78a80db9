// Package mocks provides mock implementations for testing the subgencluster broker.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Create, GetByID, FindByIdentity, ClaimNext, ReportProgress, ReportCompletion, Stats
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/b0vik/subgencluster-api-server/internal/core JobRepository

// Generate mock for StuckJobSweeper interface from internal/core package.
// This creates MockStuckJobSweeper with methods for all StuckJobSweeper interface methods:
// RequeueStuck
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=stuck_job_sweeper_mock.go github.com/b0vik/subgencluster-api-server/internal/core StuckJobSweeper

// Generate mock for AccountRepository interface from internal/core package.
// This creates MockAccountRepository with methods for all AccountRepository interface methods:
// Create, GetByAPIKey, GetByUsername
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=account_repository_mock.go github.com/b0vik/subgencluster-api-server/internal/core AccountRepository

// Generate mock for PayloadStore interface from internal/core package.
// This creates MockPayloadStore with methods for all PayloadStore interface methods:
// Store, Fetch
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=payload_store_mock.go github.com/b0vik/subgencluster-api-server/internal/core PayloadStore

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, Increment
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/b0vik/subgencluster-api-server/internal/core CacheRepository
