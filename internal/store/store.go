package store

import (
	"context"
	"encoding/json"
)

// TableName is the backend table holding events.
const TableName = "events"

// Row is an events row as the backend returns it. Data is the raw JSON
// value of the data column: either the serialized object itself or a JSON
// string wrapping it, depending on backend and column type.
type Row struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Store defines the persistence interface for the events table.
type Store interface {
	// ListEvents returns every row ordered by id.
	ListEvents(ctx context.Context) ([]Row, error)
	// InsertEvent adds a row. A duplicate id is reported by the backend.
	InsertEvent(ctx context.Context, id, data string) error
	// UpdateEvent replaces the data of the row with the given id.
	// Updating a missing id is not an error.
	UpdateEvent(ctx context.Context, id, data string) error
	// DeleteEvent removes the row with the given id.
	// Deleting a missing id is not an error.
	DeleteEvent(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
