package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrMissingSetting is returned (wrapped with the variable name) when a
// required setting is absent.
var ErrMissingSetting = errors.New("missing required setting")

type Config struct {
	BackendURL string // EVENTDESK_BACKEND_URL or SUPABASE_URL (required)
	BackendKey string // EVENTDESK_BACKEND_KEY or SUPABASE_KEY (required unless sqlite)
	RESTPath   string // EVENTDESK_REST_PATH (default "/rest/v1")
	Migrate    bool   // EVENTDESK_MIGRATE (default true; postgres only)

	HTTPAddr string // EVENTDESK_HTTP_ADDR (default ":8080")
	GRPCAddr string // EVENTDESK_GRPC_ADDR (optional, empty = no health listener)
	NATSURL  string // EVENTDESK_NATS_URL (optional, empty = no notifications)

	CacheTTL       time.Duration // EVENTDESK_CACHE_TTL (default 0 = always re-fetch)
	SessionTTL     time.Duration // EVENTDESK_SESSION_TTL (default 30m)
	CookieSecure   bool          // EVENTDESK_COOKIE_SECURE (default false)
	MetricsEnabled bool          // EVENTDESK_METRICS (default true)

	// Sync settings
	SyncInterval   time.Duration // EVENTDESK_SYNC_INTERVAL (default 10m; 0 = disabled)
	SyncS3Bucket   string        // EVENTDESK_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // EVENTDESK_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // EVENTDESK_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // EVENTDESK_SYNC_S3_KEY (default "eventdesk/events.jsonl")
}

// fileConfig mirrors Config in the optional TOML file named by
// EVENTDESK_CONFIG. Durations and booleans are kept as strings so they go
// through the same parsing as environment values.
type fileConfig struct {
	BackendURL     string `toml:"backend_url"`
	BackendKey     string `toml:"backend_key"`
	RESTPath       string `toml:"rest_path"`
	Migrate        string `toml:"migrate"`
	HTTPAddr       string `toml:"http_addr"`
	GRPCAddr       string `toml:"grpc_addr"`
	NATSURL        string `toml:"nats_url"`
	CacheTTL       string `toml:"cache_ttl"`
	SessionTTL     string `toml:"session_ttl"`
	CookieSecure   string `toml:"cookie_secure"`
	Metrics        string `toml:"metrics"`
	SyncInterval   string `toml:"sync_interval"`
	SyncS3Bucket   string `toml:"sync_s3_bucket"`
	SyncS3Endpoint string `toml:"sync_s3_endpoint"`
	SyncS3Region   string `toml:"sync_s3_region"`
	SyncS3Key      string `toml:"sync_s3_key"`
}

// Load reads the configuration. Environment variables take precedence over
// the TOML file, which takes precedence over defaults.
func Load() (*Config, error) {
	var f fileConfig
	if path := os.Getenv("EVENTDESK_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("EVENTDESK_CONFIG %s: %w", path, err)
		}
	}

	c := &Config{
		BackendURL:     firstNonEmpty(os.Getenv("EVENTDESK_BACKEND_URL"), os.Getenv("SUPABASE_URL"), f.BackendURL),
		BackendKey:     firstNonEmpty(os.Getenv("EVENTDESK_BACKEND_KEY"), os.Getenv("SUPABASE_KEY"), f.BackendKey),
		RESTPath:       envOrDefault("EVENTDESK_REST_PATH", f.RESTPath, "/rest/v1"),
		HTTPAddr:       envOrDefault("EVENTDESK_HTTP_ADDR", f.HTTPAddr, ":8080"),
		GRPCAddr:       envOrDefault("EVENTDESK_GRPC_ADDR", f.GRPCAddr, ""),
		NATSURL:        envOrDefault("EVENTDESK_NATS_URL", f.NATSURL, ""),
		SyncS3Bucket:   envOrDefault("EVENTDESK_SYNC_S3_BUCKET", f.SyncS3Bucket, ""),
		SyncS3Endpoint: envOrDefault("EVENTDESK_SYNC_S3_ENDPOINT", f.SyncS3Endpoint, ""),
		SyncS3Region:   envOrDefault("EVENTDESK_SYNC_S3_REGION", f.SyncS3Region, "us-east-1"),
		SyncS3Key:      envOrDefault("EVENTDESK_SYNC_S3_KEY", f.SyncS3Key, "eventdesk/events.jsonl"),
	}

	if c.BackendURL == "" {
		return nil, fmt.Errorf("%w: EVENTDESK_BACKEND_URL (or SUPABASE_URL)", ErrMissingSetting)
	}
	if c.BackendKey == "" && !IsSQLiteURL(c.BackendURL) {
		return nil, fmt.Errorf("%w: EVENTDESK_BACKEND_KEY (or SUPABASE_KEY)", ErrMissingSetting)
	}

	var err error
	if c.Migrate, err = parseBool("EVENTDESK_MIGRATE", f.Migrate, true); err != nil {
		return nil, err
	}
	if c.CookieSecure, err = parseBool("EVENTDESK_COOKIE_SECURE", f.CookieSecure, false); err != nil {
		return nil, err
	}
	if c.MetricsEnabled, err = parseBool("EVENTDESK_METRICS", f.Metrics, true); err != nil {
		return nil, err
	}
	if c.CacheTTL, err = parseDuration("EVENTDESK_CACHE_TTL", f.CacheTTL, "0"); err != nil {
		return nil, err
	}
	if c.SessionTTL, err = parseDuration("EVENTDESK_SESSION_TTL", f.SessionTTL, "30m"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = parseDuration("EVENTDESK_SYNC_INTERVAL", f.SyncInterval, "10m"); err != nil {
		return nil, err
	}

	return c, nil
}

// IsSQLiteURL reports whether url selects the local SQLite backend.
func IsSQLiteURL(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}

func parseBool(key, fileVal string, fallback bool) (bool, error) {
	s := envOrDefault(key, fileVal, "")
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key, fileVal, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fileVal, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, s)
	}
	return d, nil
}

func envOrDefault(key, fileVal, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
