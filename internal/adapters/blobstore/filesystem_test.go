package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestStoreAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	locator, err := store.Store(ctx, "abc123.wav", []byte("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "abc123.wav", locator)

	got, err := store.Fetch(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio bytes"), got)
}

func TestStore_IdenticalContentOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, "same.wav", []byte("payload"))
	require.NoError(t, err)
	_, err = store.Store(ctx, "same.wav", []byte("payload"))
	require.NoError(t, err)

	got, err := store.Fetch(ctx, "same.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestFetch_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Fetch(context.Background(), "nope.wav")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.wav", "dir/file.wav", ".."} {
		_, err := store.Store(ctx, key, []byte("x"))
		assert.True(t, apperrors.IsValidation(err), "key %q should be rejected", key)
	}
}

func TestNewFilesystemStore_EmptyDir(t *testing.T) {
	_, err := NewFilesystemStore("", nil)
	assert.Error(t, err)
}
