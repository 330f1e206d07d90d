package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// received_at is stored fixed-width so string order matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one archived payload.
type Entry struct {
	ID         int64
	SessionID  string
	Source     string
	Cursor     string
	Page       uint64
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Store manages the entry archive backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the archive database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores entries in one transaction. A zero ReceivedAt is stamped
// with the current time.
func (s *Store) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if s == nil || s.db == nil {
		return errors.New("archive store unavailable")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (
            session_id, source, cursor, page, payload, received_at
        ) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, entry := range entries {
		if !json.Valid(entry.Payload) {
			return fmt.Errorf("archive entry for %s: payload is not valid JSON", entry.Source)
		}
		received := entry.ReceivedAt
		if received.IsZero() {
			received = now
		}
		if _, err := stmt.ExecContext(ctx,
			entry.SessionID,
			entry.Source,
			nullableString(entry.Cursor),
			int64(entry.Page),
			string(entry.Payload),
			received.UTC().Format(timestampLayout),
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest entries, oldest first. An empty
// source matches every source.
func (s *Store) Recent(ctx context.Context, source string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("archive store unavailable")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, session_id, source, cursor, page, payload, received_at FROM entries`
	args := []any{}
	if source = strings.TrimSpace(source); source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Count returns the number of archived entries for source, or for all
// sources when source is empty.
func (s *Store) Count(ctx context.Context, source string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("archive store unavailable")
	}
	var count int64
	var err error
	if source = strings.TrimSpace(source); source != "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries WHERE source = ?`, source).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Prune deletes entries received before cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("archive store unavailable")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE received_at < ?`, cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry    Entry
		cursor   sql.NullString
		page     int64
		payload  string
		received string
	)
	if err := row.Scan(&entry.ID, &entry.SessionID, &entry.Source, &cursor, &page, &payload, &received); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	entry.Cursor = cursor.String
	if page > 0 {
		entry.Page = uint64(page)
	}
	entry.Payload = json.RawMessage(payload)
	ts, err := time.Parse(timestampLayout, received)
	if err != nil {
		return Entry{}, fmt.Errorf("parse received_at %q: %w", received, err)
	}
	entry.ReceivedAt = ts
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
