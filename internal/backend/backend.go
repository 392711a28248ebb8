// Package backend opens the store.Store selected by the configured backend
// URL scheme.
package backend

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/eventdesk/internal/config"
	"github.com/alfredjeanlab/eventdesk/internal/store"
	"github.com/alfredjeanlab/eventdesk/internal/store/postgres"
	"github.com/alfredjeanlab/eventdesk/internal/store/rest"
	"github.com/alfredjeanlab/eventdesk/internal/store/sqlite"
)

// Kind names a backend implementation.
type Kind string

const (
	KindREST     Kind = "rest"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// Detect returns the backend kind for a URL.
func Detect(rawURL string) (Kind, error) {
	switch {
	case config.IsSQLiteURL(rawURL):
		return KindSQLite, nil
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return KindPostgres, nil
	case strings.HasPrefix(rawURL, "https://"), strings.HasPrefix(rawURL, "http://"):
		return KindREST, nil
	}
	return "", fmt.Errorf("unsupported backend URL %q (want http(s)://, postgres:// or sqlite:)", Describe(rawURL))
}

// Open connects to the backend described by cfg.
func Open(cfg *config.Config) (store.Store, error) {
	kind, err := Detect(cfg.BackendURL)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindSQLite:
		s, err := sqlite.New(SQLitePath(cfg.BackendURL))
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindPostgres:
		dsn, err := PostgresDSN(cfg.BackendURL, cfg.BackendKey)
		if err != nil {
			return nil, err
		}
		s, err := postgres.New(dsn, postgres.Options{Migrate: cfg.Migrate})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return rest.New(cfg.BackendURL, cfg.RESTPath, cfg.BackendKey), nil
	}
}

// SQLitePath extracts the file path from "sqlite:path" or "sqlite://path".
func SQLitePath(rawURL string) string {
	p := strings.TrimPrefix(rawURL, "sqlite:")
	return strings.TrimPrefix(p, "//")
}

// PostgresDSN returns rawURL with key set as the password when the URL
// carries none.
func PostgresDSN(rawURL, key string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse backend URL: %w", err)
	}
	if key == "" || u.User == nil {
		if key != "" {
			u.User = url.UserPassword("postgres", key)
		}
		return u.String(), nil
	}
	if _, ok := u.User.Password(); ok {
		return rawURL, nil
	}
	u.User = url.UserPassword(u.User.Username(), key)
	return u.String(), nil
}

// Describe returns rawURL with any password masked, for logging.
func Describe(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}
