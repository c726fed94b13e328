// Package cache holds the server's in-memory TTL stores: sessions by id
// and validated datasets by content hash.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentKey generates a cache key from raw upload bytes. Identical uploads
// map to the same key, so their validated dataset can be shared.
func ContentKey(data []byte) string {
	hash := sha256.Sum256(data)
	return "gradelens:v1:" + hex.EncodeToString(hash[:])
}
