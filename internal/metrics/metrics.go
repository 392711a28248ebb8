// Package metrics exposes Prometheus counters and histograms for HTTP
// requests and backend operations on a private registry.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/eventdesk/internal/store"
)

const namespace = "eventdesk"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	backendOps      *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// New registers the collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		backendOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_operations_total",
			Help:      "Backend table operations, by operation and result.",
		}, []string{"op", "result"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_operation_duration_seconds",
			Help:      "Duration of backend table operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument wraps next, recording requests under the given route label.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// WrapStore returns s with every operation counted and timed.
func (m *Metrics) WrapStore(s store.Store) store.Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{next: s, m: m}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.backendOps.WithLabelValues(op, result).Inc()
	m.backendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

type instrumentedStore struct {
	next store.Store
	m    *Metrics
}

func (s *instrumentedStore) ListEvents(ctx context.Context) ([]store.Row, error) {
	start := time.Now()
	rows, err := s.next.ListEvents(ctx)
	s.m.observe("list", start, err)
	return rows, err
}

func (s *instrumentedStore) InsertEvent(ctx context.Context, id, data string) error {
	start := time.Now()
	err := s.next.InsertEvent(ctx, id, data)
	s.m.observe("insert", start, err)
	return err
}

func (s *instrumentedStore) UpdateEvent(ctx context.Context, id, data string) error {
	start := time.Now()
	err := s.next.UpdateEvent(ctx, id, data)
	s.m.observe("update", start, err)
	return err
}

func (s *instrumentedStore) DeleteEvent(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeleteEvent(ctx, id)
	s.m.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) Close() error { return s.next.Close() }
