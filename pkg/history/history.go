// Package history keeps a local record of answered questions per identity.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/google/uuid"
)

// Exchange is one answered question.
type Exchange struct {
	ID            string
	Identity      string
	Question      string
	FileName      string
	Answer        string
	Reasoning     string
	ExecutionTime float64
	CreatedAt     time.Time
}

// Store persists exchanges in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		question TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL DEFAULT '',
		reasoning TEXT NOT NULL DEFAULT '',
		execution_time REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_identity ON exchanges(identity, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append persists one exchange. Missing ID and timestamp are filled in.
func (s *Store) Append(ctx context.Context, e *Exchange) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, identity, question, file_name, answer, reasoning, execution_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Identity, e.Question, e.FileName, e.Answer, e.Reasoning, e.ExecutionTime, e.CreatedAt,
	)
	return err
}

// List returns the most recent exchanges for identity, newest first.
// limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, identity string, limit int) ([]Exchange, error) {
	q := `SELECT id, identity, question, file_name, answer, reasoning, execution_time, created_at
		FROM exchanges WHERE identity=? ORDER BY created_at DESC`
	args := []any{identity}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.Identity, &e.Question, &e.FileName,
			&e.Answer, &e.Reasoning, &e.ExecutionTime, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes all exchanges for identity.
func (s *Store) Clear(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE identity=?`, identity)
	return err
}

// Record adapts Append to the query orchestrator's Recorder interface.
func (s *Store) Record(ctx context.Context, identity, question, fileName string, res api.QueryResult) error {
	return s.Append(ctx, &Exchange{
		Identity:      identity,
		Question:      question,
		FileName:      fileName,
		Answer:        res.Answer,
		Reasoning:     res.Reasoning,
		ExecutionTime: res.ExecutionTime,
	})
}
