// Package embedcache persists case embeddings between runs so unchanged cases
// are not re-embedded on every ranking.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Entry is a cached vector plus what it was computed from.
type Entry struct {
	Vector      []float64 `json:"vector"`
	Model       string    `json:"model"`
	ContentHash string    `json:"content_hash"`
}

// Fresh reports whether e was computed by model from text hashing to hash.
func (e Entry) Fresh(model, hash string) bool {
	return len(e.Vector) > 0 && e.Model == model && e.ContentHash == hash
}

// Cache maps case IDs to embeddings.
type Cache interface {
	Get(ctx context.Context, caseID int64) (Entry, bool, error)
	Put(ctx context.Context, caseID int64, e Entry) error
	Len() int
	Close() error
}

// ContentHash fingerprints the text an embedding was computed from.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
