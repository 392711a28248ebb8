package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alfredjeanlab/eventdesk/internal/config"
	"github.com/alfredjeanlab/eventdesk/internal/store/rest"
	"github.com/alfredjeanlab/eventdesk/internal/store/sqlite"
)

func TestDetect(t *testing.T) {
	for _, tc := range []struct {
		url     string
		want    Kind
		wantErr bool
	}{
		{"https://xyz.supabase.co", KindREST, false},
		{"http://localhost:54321", KindREST, false},
		{"postgres://user@db:5432/events", KindPostgres, false},
		{"postgresql://db/events", KindPostgres, false},
		{"sqlite:events.db", KindSQLite, false},
		{"sqlite:///tmp/events.db", KindSQLite, false},
		{"mysql://db/events", "", true},
		{"", "", true},
	} {
		t.Run(tc.url, func(t *testing.T) {
			got, err := Detect(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Detect(%q) expected error", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect(%q) error = %v", tc.url, err)
			}
			if got != tc.want {
				t.Errorf("Detect(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestDetectRedactsPassword(t *testing.T) {
	_, err := Detect("mysql://root:hunter2@db/events")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("error leaks password: %v", err)
	}
}

func TestSQLitePath(t *testing.T) {
	for in, want := range map[string]string{
		"sqlite:events.db":        "events.db",
		"sqlite:///tmp/events.db": "/tmp/events.db",
		"sqlite://data/e.db":      "data/e.db",
		"sqlite:":                 "",
	} {
		if got := SQLitePath(in); got != want {
			t.Errorf("SQLitePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	for _, tc := range []struct {
		name string
		url  string
		key  string
		want string
	}{
		{"KeyBecomesPassword", "postgres://admin@db:5432/events", "s3cret", "postgres://admin:s3cret@db:5432/events"},
		{"ExistingPasswordKept", "postgres://admin:pw@db/events", "s3cret", "postgres://admin:pw@db/events"},
		{"NoUserDefaultsToPostgres", "postgres://db/events?sslmode=require", "s3cret", "postgres://postgres:s3cret@db/events?sslmode=require"},
		{"NoKey", "postgres://admin@db/events", "", "postgres://admin@db/events"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PostgresDSN(tc.url, tc.key)
			if err != nil {
				t.Fatalf("PostgresDSN error = %v", err)
			}
			if got != tc.want {
				t.Errorf("PostgresDSN = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("postgres://admin:pw@db/events"); strings.Contains(got, "pw@") {
		t.Errorf("Describe leaked password: %q", got)
	}
	if got := Describe("https://xyz.supabase.co"); got != "https://xyz.supabase.co" {
		t.Errorf("Describe = %q", got)
	}
}

func TestOpenREST(t *testing.T) {
	s, err := Open(&config.Config{BackendURL: "https://xyz.supabase.co", BackendKey: "anon"})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*rest.Store); !ok {
		t.Errorf("Open returned %T, want *rest.Store", s)
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := Open(&config.Config{BackendURL: "sqlite:" + path})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer s.Close()
	lite, ok := s.(*sqlite.Store)
	if !ok {
		t.Fatalf("Open returned %T, want *sqlite.Store", s)
	}
	if lite.Path() != path {
		t.Errorf("Path = %q, want %q", lite.Path(), path)
	}
	if _, err := s.ListEvents(context.Background()); err != nil {
		t.Errorf("ListEvents error = %v", err)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(&config.Config{BackendURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
