// Package sqlite implements store.Store on a local SQLite file. It is meant
// for development and demos where no hosted backend is available.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// Store persists events in a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database file at path and ensures the
// events table exists.
func New(path string) (*Store, error) {
	if path == "" {
		path = "eventdesk.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL DEFAULT '{}'
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ListEvents(ctx context.Context) ([]store.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.Row
	for rows.Next() {
		var (
			r    store.Row
			data sql.NullString
		)
		if err := rows.Scan(&r.ID, &data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if data.Valid && data.String != "" {
			r.Data = []byte(data.String)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) InsertEvent(ctx context.Context, id, data string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO events (id, data) VALUES (?, ?)`, id, data); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, id, data string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE events SET data = ? WHERE id = ?`, data, id); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
