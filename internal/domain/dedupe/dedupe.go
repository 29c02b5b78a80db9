// Package dedupe provides content-addressed identity for uploaded payloads.
// Two uploads with identical bytes resolve to the same hash and the same
// storage key, so re-storing identical content is an idempotent overwrite.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Hash returns the hex SHA-256 digest of the exact byte content. Filename and
// upload time play no part.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// StorageKey derives the deterministic storage object name for a payload from
// its content hash and original extension. Identical content always maps to
// the same key, so no duplicate-detection lookup is needed before storing.
func StorageKey(hash, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return hash + ext
}
