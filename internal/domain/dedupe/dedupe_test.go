package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("hello world"))
	b := Hash([]byte("hello world"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHash_SingleByteDifference(t *testing.T) {
	a := Hash([]byte("hello world"))
	b := Hash([]byte("hello worle"))
	assert.NotEqual(t, a, b)
}

func TestHash_KnownVector(t *testing.T) {
	// sha256("test")
	assert.Equal(t,
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		Hash([]byte("test")))
}

func TestStorageKey(t *testing.T) {
	h := Hash([]byte("audio"))
	assert.Equal(t, h+".wav", StorageKey(h, "interview.wav"))
	assert.Equal(t, h+".wav", StorageKey(h, "other-name.WAV"))
	assert.Equal(t, h, StorageKey(h, "noext"))
}

func TestStorageKey_SameContentDifferentNames(t *testing.T) {
	h := Hash([]byte("identical bytes"))
	assert.Equal(t, StorageKey(h, "a.mp3"), StorageKey(h, "b.mp3"))
}
