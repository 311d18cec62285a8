// Package sqlite persists policies and workflow specs in a SQLite database
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Document kinds sharing the documents table.
const (
	KindPolicy   = "policy"
	KindWorkflow = "workflow"
)

// Open opens (or creates) a database and applies the schema.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return db, nil
}

// Store implements ports.Store on one kind of row in the documents table.
type Store[T any] struct {
	db   *sql.DB
	kind string
}

// NewStore creates a store for kind on db.
func NewStore[T any](db *sql.DB, kind string) *Store[T] {
	return &Store[T]{db: db, kind: kind}
}

// NewPolicyStore creates a ports.PolicyStore on db.
func NewPolicyStore(db *sql.DB) *Store[policy.Policy] {
	return NewStore[policy.Policy](db, KindPolicy)
}

// NewWorkflowStore creates a ports.WorkflowStore on db.
func NewWorkflowStore(db *sql.DB) *Store[domain.StateMachineSpec] {
	return NewStore[domain.StateMachineSpec](db, KindWorkflow)
}

// Save upserts the document stored under key.
func (s *Store[T]) Save(ctx context.Context, key string, v T) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal %s: %w", s.kind, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (kind, key, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.kind, key, string(body), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: save %s: %w", s.kind, err)
	}
	return nil
}

// Load retrieves the document stored under key.
func (s *Store[T]) Load(ctx context.Context, key string) (T, error) {
	var v T
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE kind = ? AND key = ?`, s.kind, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return v, domain.ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("sqlitestore: load %s: %w", s.kind, err)
	}

	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return v, fmt.Errorf("sqlitestore: unmarshal %s: %w", s.kind, err)
	}
	return v, nil
}

// Delete removes the document stored under key.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND key = ?`, s.kind, key,
	); err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", s.kind, err)
	}
	return nil
}

// List returns the keys of this kind in order.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE kind = ? ORDER BY key`, s.kind)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list %s: %w", s.kind, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
