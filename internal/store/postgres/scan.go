package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a store.Row.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (store.Row, error) {
	var (
		r    store.Row
		data sql.NullString
	)
	if err := row.Scan(&r.ID, &data); err != nil {
		return store.Row{}, err
	}
	r.Data = rawData(data)
	return r, nil
}

// rawData converts the data column to a json.RawMessage; NULL and empty
// text are nil.
func rawData(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
