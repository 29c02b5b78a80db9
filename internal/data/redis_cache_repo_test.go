package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0vik/subgencluster-api-server/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "test:key", []byte("value"), time.Minute))

	got, err := repo.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	// Missing key is nil, nil.
	got, err = repo.Get(ctx, "test:missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := repo.Delete(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "test:key")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisCacheRepo_EmptyKeyRejected(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.Error(t, repo.Set(ctx, "", []byte("v"), time.Minute))

	_, err := repo.Get(ctx, "")
	require.Error(t, err)

	_, err = repo.Delete(ctx, "")
	require.Error(t, err)

	_, err = repo.Increment(ctx, "", time.Minute)
	require.Error(t, err)
}

func TestRedisCacheRepo_Increment(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	n, err := repo.Increment(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Increment(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// TTL is set on first increment and preserved afterwards.
	ttl := client.TTL(ctx, "test:counter").Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
