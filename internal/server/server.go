// Package server exposes the admin panel over HTTP and a health service over
// gRPC.
package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/eventdesk/internal/metrics"
	"github.com/alfredjeanlab/eventdesk/internal/panel"
	"github.com/alfredjeanlab/eventdesk/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultTitle is the page heading.
const DefaultTitle = "Event Admin Panel"

// Options configures a Server.
type Options struct {
	Title string
	// Metrics is optional; nil disables /metrics and request instrumentation.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server renders the panel page and dispatches its form posts.
type Server struct {
	panel    *panel.Panel
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tmpl     *template.Template
	title    string
}

// New parses the embedded templates and returns a Server.
func New(p *panel.Panel, sessions *session.Manager, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		panel:    p,
		sessions: sessions,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		tmpl:     tmpl,
		title:    opts.Title,
	}, nil
}

// Handler returns an http.Handler with all routes registered and the
// middleware chain applied.
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.metrics.Instrument("index", http.HandlerFunc(s.handleIndex)))
	mux.Handle("POST /add", s.metrics.Instrument("add", http.HandlerFunc(s.handleAdd)))
	mux.Handle("POST /edit", s.metrics.Instrument("edit", http.HandlerFunc(s.handleEdit)))
	mux.Handle("POST /delete", s.metrics.Instrument("delete", http.HandlerFunc(s.handleDelete)))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return withSecurityHeaders(RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, mux)))
}
