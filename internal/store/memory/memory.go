// Package memory provides an in-process store.Store used by tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// Store keeps rows in a map. Setting one of the Err fields makes the
// matching operation fail with that error.
type Store struct {
	mu   sync.Mutex
	rows map[string]string

	ListErr   error
	InsertErr error
	UpdateErr error
	DeleteErr error

	// Calls counts invocations per operation name.
	Calls map[string]int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[string]string), Calls: make(map[string]int)}
}

// Put stores data for id verbatim, bypassing encoding.
func (s *Store) Put(id, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = data
}

// Data returns the stored data for id.
func (s *Store) Data(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rows[id]
	return d, ok
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// CallCount returns how often op ("list", "insert", "update", "delete") ran.
func (s *Store) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

func (s *Store) ListEvents(_ context.Context) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["list"]++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]store.Row, 0, len(s.rows))
	for id, data := range s.rows {
		out = append(out, store.Row{ID: id, Data: json.RawMessage(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertEvent(_ context.Context, id, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["insert"]++
	if s.InsertErr != nil {
		return s.InsertErr
	}
	if _, ok := s.rows[id]; ok {
		return fmt.Errorf("duplicate key value violates unique constraint: id %q", id)
	}
	s.rows[id] = data
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, id, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["update"]++
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	if _, ok := s.rows[id]; ok {
		s.rows[id] = data
	}
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["delete"]++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.rows, id)
	return nil
}

func (s *Store) Close() error { return nil }
