package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method  string
	path    string
	query   string
	body    string
	apikey  string
	auth    string
	prefer  string
	ctype   string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.apikey = r.Header.Get("apikey")
	h.auth = r.Header.Get("Authorization")
	h.prefer = r.Header.Get("Prefer")
	h.ctype = r.Header.Get("Content-Type")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestStore creates a Store pointed at a test server with the given handler.
func newTestStore(t *testing.T, h http.Handler) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "", "secret-key")
}

func TestListEvents(t *testing.T) {
	h := &testHandler{
		responseBody: `[
			{"id": "evt1", "data": "{\"greeting\": \"hello\"}"},
			{"id": "evt2", "data": {"b": "2"}},
			{"id": "evt3", "data": null}
		]`,
	}
	s := newTestStore(t, h)

	rows, err := s.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}

	if h.method != http.MethodGet {
		t.Errorf("method = %q, want GET", h.method)
	}
	if h.path != "/rest/v1/events" {
		t.Errorf("path = %q, want /rest/v1/events", h.path)
	}
	if !strings.Contains(h.query, "order=id.asc") || !strings.Contains(h.query, "select=id%2Cdata") {
		t.Errorf("query = %q", h.query)
	}
	if h.apikey != "secret-key" || h.auth != "Bearer secret-key" {
		t.Errorf("auth headers apikey=%q authorization=%q", h.apikey, h.auth)
	}
	if h.prefer != "" {
		t.Errorf("GET should not send Prefer, got %q", h.prefer)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ID != "evt1" || string(rows[0].Data) != `"{\"greeting\": \"hello\"}"` {
		t.Errorf("row 0 = %s %s", rows[0].ID, rows[0].Data)
	}
	if string(rows[1].Data) != `{"b": "2"}` {
		t.Errorf("row 1 data = %s", rows[1].Data)
	}
	if string(rows[2].Data) != "null" {
		t.Errorf("row 2 data = %s", rows[2].Data)
	}
}

func TestListEvents_Empty(t *testing.T) {
	s := newTestStore(t, &testHandler{responseBody: `[]`})
	rows, err := s.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestInsertEvent(t *testing.T) {
	h := &testHandler{statusCode: http.StatusCreated}
	s := newTestStore(t, h)

	if err := s.InsertEvent(context.Background(), "evt1", `{"greeting":"hello"}`); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.query != "" {
		t.Errorf("query = %q, want empty", h.query)
	}
	if h.prefer != "return=minimal" {
		t.Errorf("Prefer = %q", h.prefer)
	}
	if h.ctype != "application/json" {
		t.Errorf("content-type = %q", h.ctype)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if body["id"] != "evt1" || body["data"] != `{"greeting":"hello"}` {
		t.Errorf("body = %v", body)
	}
}

func TestInsertEvent_Conflict(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusConflict,
		responseBody: `{"code":"23505","details":"Key (id)=(evt1) already exists.","hint":null,"message":"duplicate key value violates unique constraint \"events_pkey\""}`,
	}
	s := newTestStore(t, h)

	err := s.InsertEvent(context.Background(), "evt1", `{}`)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "23505" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "duplicate key") || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestUpdateEvent(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	s := newTestStore(t, h)

	if err := s.UpdateEvent(context.Background(), "evt 1", `{"mood":"cheerful"}`); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if h.method != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", h.method)
	}
	if h.query != "id=eq.evt+1" {
		t.Errorf("query = %q, want id=eq.evt+1", h.query)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if _, ok := body["id"]; ok {
		t.Error("update body must not carry the id")
	}
	if body["data"] != `{"mood":"cheerful"}` {
		t.Errorf("body = %v", body)
	}
}

func TestDeleteEvent(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	s := newTestStore(t, h)

	if err := s.DeleteEvent(context.Background(), "evt1"); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if h.method != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", h.method)
	}
	if h.query != "id=eq.evt1" {
		t.Errorf("query = %q", h.query)
	}
	if h.body != "" {
		t.Errorf("body = %q, want empty", h.body)
	}
}

func TestPlainTextError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusUnauthorized, responseBody: "Invalid API key\n"}
	s := newTestStore(t, h)

	_, err := s.ListEvents(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "Invalid API key" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestCustomPathAndNoKey(t *testing.T) {
	tests := []struct {
		endpoint string
		path     string
		want     string
	}{
		{"", "/", "/events"},
		{"/", "//", "/events"},
		{"", "/api/", "/api/events"},
		{"/", "custom/v2", "/custom/v2/events"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h := &testHandler{responseBody: `[]`}
			srv := httptest.NewServer(h)
			defer srv.Close()

			s := New(srv.URL+tt.endpoint, tt.path, "")
			if _, err := s.ListEvents(context.Background()); err != nil {
				t.Fatalf("ListEvents() error = %v", err)
			}
			if h.path != tt.want {
				t.Errorf("path = %q, want %q", h.path, tt.want)
			}
			if h.apikey != "" || h.auth != "" {
				t.Errorf("unexpected auth headers %q %q", h.apikey, h.auth)
			}
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := New(url, "", "k")
	if err := s.DeleteEvent(context.Background(), "evt1"); err == nil {
		t.Fatal("expected error against a closed server")
	}
}
