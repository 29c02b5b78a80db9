package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/b0vik/subgencluster-api-server/config"
	"github.com/b0vik/subgencluster-api-server/internal/mocks"
)

func TestNewSweeperService_RequiresRepo(t *testing.T) {
	_, err := NewSweeperService(SweeperServiceOptions{})
	require.Error(t, err)
}

func TestSweeperService_Sweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockStuckJobSweeper(ctrl)
	svc := MustNewSweeperService(SweeperServiceOptions{
		Repo:   repo,
		Config: config.SweeperConfig{Interval: time.Minute, MaxAssignmentAge: 30 * time.Minute},
	})

	repo.EXPECT().RequeueStuck(gomock.Any(), 30*time.Minute).Return(int64(2), nil)

	requeued, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)
}

func TestSweeperService_Run_GracefulShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockStuckJobSweeper(ctrl)
	svc := MustNewSweeperService(SweeperServiceOptions{
		Repo:   repo,
		Config: config.SweeperConfig{Interval: 10 * time.Millisecond, MaxAssignmentAge: time.Hour},
	})

	repo.EXPECT().RequeueStuck(gomock.Any(), time.Hour).Return(int64(0), nil).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeperService_Run_ContinuesAfterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockStuckJobSweeper(ctrl)
	svc := MustNewSweeperService(SweeperServiceOptions{
		Repo:   repo,
		Config: config.SweeperConfig{Interval: 20 * time.Millisecond, MaxAssignmentAge: time.Hour},
	})

	swept := make(chan struct{}, 4)
	first := repo.EXPECT().RequeueStuck(gomock.Any(), time.Hour).
		Return(int64(0), errors.New("db down"))
	repo.EXPECT().RequeueStuck(gomock.Any(), time.Hour).
		DoAndReturn(func(context.Context, time.Duration) (int64, error) {
			select {
			case swept <- struct{}{}:
			default:
			}
			return 0, nil
		}).MinTimes(1).After(first)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not keep running after an error")
	}

	cancel()
	require.NoError(t, <-done)
}
