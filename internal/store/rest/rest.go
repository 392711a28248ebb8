// Package rest implements store.Store against a PostgREST endpoint such as
// the one a hosted Supabase project exposes under /rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// DefaultPath is the API prefix used by hosted Supabase projects.
const DefaultPath = "/rest/v1"

// APIError is a non-2xx response from the REST endpoint.
type APIError struct {
	StatusCode int
	Code       string // PostgREST / Postgres error code, e.g. "23505"
	Message    string
	Details    string
	Hint       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("rest: %d", e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " [" + e.Details + "]"
	}
	return msg
}

// Store talks to the events table through PostgREST.
type Store struct {
	baseURL    string // endpoint + path prefix, no trailing slash
	key        string
	httpClient *http.Client
}

var _ store.Store = (*Store)(nil)

// New creates a REST store. endpoint is the project URL
// (e.g. "https://xyz.supabase.co"), path the API prefix (DefaultPath when
// empty), key the API key sent both as apikey and bearer token.
func New(endpoint, path, key string) *Store {
	if path == "" {
		path = DefaultPath
	}
	base := strings.TrimRight(endpoint, "/")
	if p := strings.Trim(path, "/"); p != "" {
		base += "/" + p
	}
	return &Store{
		baseURL:    base,
		key:        key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the REST store.
func (s *Store) Close() error { return nil }

func (s *Store) ListEvents(ctx context.Context) ([]store.Row, error) {
	q := url.Values{}
	q.Set("select", "id,data")
	q.Set("order", "id.asc")

	var rows []store.Row
	if err := s.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rows, nil
}

func (s *Store) InsertEvent(ctx context.Context, id, data string) error {
	body := map[string]string{"id": id, "data": data}
	if err := s.do(ctx, http.MethodPost, nil, body, nil); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, id, data string) error {
	body := map[string]string{"data": data}
	if err := s.do(ctx, http.MethodPatch, idFilter(id), body, nil); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, idFilter(id), nil, nil); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// idFilter builds the PostgREST horizontal filter id=eq.<id>.
func idFilter(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

func (s *Store) do(ctx context.Context, method string, query url.Values, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := s.baseURL + "/" + store.TableName
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=minimal")
	}
	if s.key != "" {
		req.Header.Set("apikey", s.key)
		req.Header.Set("Authorization", "Bearer "+s.key)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var pgErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details string `json:"details"`
			Hint    string `json:"hint"`
		}
		if json.Unmarshal(respBody, &pgErr) == nil && pgErr.Message != "" {
			apiErr.Code = pgErr.Code
			apiErr.Message = pgErr.Message
			apiErr.Details = pgErr.Details
			apiErr.Hint = pgErr.Hint
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
