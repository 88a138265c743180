package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one tool invocation.
type Entry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Tool       string    `json:"tool"`
	ArgsJSON   string    `json:"args"`
	Result     string    `json:"result"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (e Entry) Duration() time.Duration { return e.FinishedAt.Sub(e.StartedAt) }

func (e Entry) Failed() bool { return e.Error != "" }

// JournalStore manages the operation journal.
type JournalStore struct {
	db *DB
}

func NewJournalStore(db *DB) *JournalStore {
	return &JournalStore{db: db}
}

// Append stores e, assigning an ID when it has none.
func (s *JournalStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = e.StartedAt
	}
	if e.ArgsJSON == "" {
		e.ArgsJSON = "{}"
	}
	_, err := s.db.Conn().ExecContext(ctx, s.db.rebind(
		`INSERT INTO journal_entries (id, session_id, tool, args_json, result, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.SessionID, e.Tool, e.ArgsJSON, e.Result, e.Error,
		e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *JournalStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	return s.list(ctx, `SELECT id, session_id, tool, args_json, result, error, started_at, finished_at
		 FROM journal_entries ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
}

// BySession returns up to limit entries of one sketch session, oldest first.
func (s *JournalStore) BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	return s.list(ctx, `SELECT id, session_id, tool, args_json, result, error, started_at, finished_at
		 FROM journal_entries WHERE session_id = ? ORDER BY started_at ASC, id ASC LIMIT ?`, sessionID, limit)
}

func (s *JournalStore) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.Conn().QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Tool, &e.ArgsJSON, &e.Result, &e.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (s *JournalStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&n)
	return n, err
}

// Prune deletes entries started before cutoff and returns how many went.
func (s *JournalStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, s.db.rebind(
		`DELETE FROM journal_entries WHERE started_at < ?`), cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

const defaultLimit = 50

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return n
}
