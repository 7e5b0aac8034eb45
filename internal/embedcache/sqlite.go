package embedcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

const embeddingsSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	case_id      INTEGER PRIMARY KEY,
	model        TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	vector       TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// SQLCache stores embeddings in a table next to the cases, so concurrent
// writers are serialized by the database instead of racing on a file.
type SQLCache struct {
	db *sqlx.DB
}

// NewSQL creates the embeddings table if needed. The caller owns db.
func NewSQL(ctx context.Context, db *sqlx.DB) (*SQLCache, error) {
	if _, err := db.ExecContext(ctx, embeddingsSchema); err != nil {
		return nil, fmt.Errorf("create embeddings table: %w", err)
	}
	return &SQLCache{db: db}, nil
}

type embeddingRow struct {
	Model       string `db:"model"`
	ContentHash string `db:"content_hash"`
	Vector      string `db:"vector"`
}

// Get returns the entry for caseID.
func (c *SQLCache) Get(ctx context.Context, caseID int64) (Entry, bool, error) {
	var row embeddingRow
	err := c.db.GetContext(ctx, &row, `SELECT model, content_hash, vector FROM embeddings WHERE case_id = ?`, caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get embedding %d: %w", caseID, err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(row.Vector), &vec); err != nil {
		// A row we cannot decode is as good as absent; the next Put replaces it.
		return Entry{}, false, nil
	}
	return Entry{Vector: vec, Model: row.Model, ContentHash: row.ContentHash}, true, nil
}

// Put inserts or replaces the entry for caseID.
func (c *SQLCache) Put(ctx context.Context, caseID int64, e Entry) error {
	vec, err := json.Marshal(e.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO embeddings (case_id, model, content_hash, vector, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			model = excluded.model,
			content_hash = excluded.content_hash,
			vector = excluded.vector,
			updated_at = excluded.updated_at`,
		caseID, e.Model, e.ContentHash, string(vec), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put embedding %d: %w", caseID, err)
	}
	return nil
}

// Len returns the number of stored entries, or 0 if the count fails.
func (c *SQLCache) Len() int {
	var n int
	if err := c.db.Get(&n, `SELECT COUNT(*) FROM embeddings`); err != nil {
		return 0
	}
	return n
}

// Close is a no-op; the database belongs to the case store.
func (c *SQLCache) Close() error { return nil }
