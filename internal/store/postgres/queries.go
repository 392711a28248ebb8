package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, data`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListEvents(ctx context.Context, db executor) ([]store.Row, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func queryInsertEvent(ctx context.Context, db executor, id, data string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO events (id, data) VALUES ($1, $2)`, id, data)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// queryUpdateEvent replaces the data column. Zero affected rows is not an
// error: the row may have been deleted by another operator.
func queryUpdateEvent(ctx context.Context, db executor, id, data string) error {
	_, err := db.ExecContext(ctx, `UPDATE events SET data = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func queryDeleteEvent(ctx context.Context, db executor, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
