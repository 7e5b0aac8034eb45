// Package casestore persists solved cases in SQLite.
package casestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"pqrs/internal/domain"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrCaseNotFound is returned when an update targets an unknown case.
var ErrCaseNotFound = errors.New("case not found")

const casesSchema = `
CREATE TABLE IF NOT EXISTS casos (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	categoria       TEXT,
	problema        TEXT,
	sql             TEXT,
	respuesta       TEXT,
	usos            INTEGER DEFAULT 0,
	efectividad     INTEGER DEFAULT 0,
	conceptos_clave TEXT,
	complejidad     INTEGER DEFAULT 1
)`

const selectCases = `
SELECT id,
       COALESCE(categoria, '')       AS categoria,
       COALESCE(problema, '')        AS problema,
       COALESCE(sql, '')             AS sql,
       COALESCE(respuesta, '')       AS respuesta,
       COALESCE(usos, 0)             AS usos,
       COALESCE(efectividad, 0)      AS efectividad,
       COALESCE(conceptos_clave, '') AS conceptos_clave,
       COALESCE(complejidad, 1)      AS complejidad
FROM casos`

// Store is a domain.CaseStore over a SQLite database.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ domain.CaseStore = (*Store)(nil)

// Open connects to the database at path, creating the file and the schema
// as needed.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open case store %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive and shared.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, casesSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create casos table: %w", err)
	}
	logger.Debug("case store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// DB exposes the connection so other tables can live in the same file.
func (s *Store) DB() *sqlx.DB { return s.db }

// ListCases returns every case ordered by id.
func (s *Store) ListCases(ctx context.Context) ([]domain.Case, error) {
	var cases []domain.Case
	if err := s.db.SelectContext(ctx, &cases, selectCases+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// GetCase returns a single case.
func (s *Store) GetCase(ctx context.Context, id int64) (domain.Case, error) {
	var cases []domain.Case
	if err := s.db.SelectContext(ctx, &cases, selectCases+` WHERE id = ?`, id); err != nil {
		return domain.Case{}, fmt.Errorf("get case %d: %w", id, err)
	}
	if len(cases) == 0 {
		return domain.Case{}, fmt.Errorf("get case %d: %w", id, ErrCaseNotFound)
	}
	return cases[0], nil
}

// AddCase inserts c and returns its new id. Ids are never reused.
func (s *Store) AddCase(ctx context.Context, c domain.NewCase) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO casos (categoria, problema, sql, respuesta, conceptos_clave) VALUES (?, ?, ?, ?, ?)`,
		c.Category, c.ProblemText, c.QueryTemplate, c.ResponseTemplate, c.KeyConcepts)
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	s.logger.Debug("case added", "case_id", id, "category", c.Category)
	return id, nil
}

// Count returns the number of stored cases.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM casos`); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// IncrementUsage records that a case's solution was applied.
func (s *Store) IncrementUsage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE casos SET usos = COALESCE(usos, 0) + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment usage of case %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment usage of case %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("increment usage of case %d: %w", id, ErrCaseNotFound)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
