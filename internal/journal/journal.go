// Package journal records processed webhook events in SQLite so redeliveries
// can be observed. Observation only: duplicates are counted and logged, never
// suppressed, because the sheet append is not transactional with the reply.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"linelogger/internal/domain"
)

// Store is the SQLite-backed event journal.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create journal directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_events (
		event_id     TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		kind         TEXT NOT NULL,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_processed_user ON processed_events(user_id, processed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Seen reports whether an event id was already journaled. An event with no
// id is never considered seen.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_events WHERE event_id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("journal lookup: %w", err)
	}
	return true, nil
}

// MarkProcessed records an event id after its row was appended. Re-marking
// an already-journaled id is a no-op.
func (s *Store) MarkProcessed(ctx context.Context, ev domain.InboundEvent) error {
	if ev.EventID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_events (event_id, user_id, kind, processed_at)
		 VALUES (?, ?, ?, ?)`,
		ev.EventID, ev.UserID, string(ev.Kind), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Prune removes entries older than the retention window.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("journal pruned", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
