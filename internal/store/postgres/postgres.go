// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// Options controls how New prepares the database.
type Options struct {
	// Migrate applies the embedded migrations after connecting. Disable it
	// when the events table is managed elsewhere (e.g. a hosted dashboard).
	Migrate bool
}

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and optionally runs pending migrations.
func New(databaseURL string, opts Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if opts.Migrate {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already-open database handle. Migrations are not run.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]store.Row, error) {
	return queryListEvents(ctx, s.db)
}

func (s *PostgresStore) InsertEvent(ctx context.Context, id, data string) error {
	return queryInsertEvent(ctx, s.db, id, data)
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, id, data string) error {
	return queryUpdateEvent(ctx, s.db, id, data)
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	return queryDeleteEvent(ctx, s.db, id)
}
