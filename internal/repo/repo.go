// Package repo maps events onto backend rows: it decodes the data column on
// the way out, sanitizes and encodes attributes on the way in, and wraps every
// backend failure in a BackendError.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/notify"
	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// ErrBackendUnavailable matches every BackendError.
var ErrBackendUnavailable = errors.New("backend unavailable")

// BackendError reports a failed backend operation.
type BackendError struct {
	Op  string // "fetch", "add", "update" or "delete"
	ID  string // event id, empty for fetch
	Err error
}

func (e *BackendError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s events: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s event %q: %v", e.Op, e.ID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackendUnavailable }

// Options configures a Repository.
type Options struct {
	// CacheTTL keeps a fetched list for this long. Zero re-fetches on every call.
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Repository is the only path between the panel and the backend table.
type Repository struct {
	store     store.Store
	publisher notify.Publisher
	logger    *slog.Logger
	cacheTTL  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	cached   []model.Event
	cachedAt time.Time
}

// New returns a Repository over s. A nil publisher disables notifications.
func New(s store.Store, p notify.Publisher, opts Options) *Repository {
	if p == nil {
		p = &notify.NoopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:     s,
		publisher: p,
		logger:    logger,
		cacheTTL:  opts.CacheTTL,
		now:       time.Now,
	}
}

// FetchAll returns every event in backend order (ascending id). A backend
// failure or an undecodable data column fails the whole fetch.
func (r *Repository) FetchAll(ctx context.Context) ([]model.Event, error) {
	if events, ok := r.fromCache(); ok {
		return events, nil
	}

	rows, err := r.store.ListEvents(ctx)
	if err != nil {
		return nil, r.fail("fetch", "", err)
	}
	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		attrs, err := model.DecodeAttributes(row.Data)
		if err != nil {
			return nil, r.fail("fetch", "", fmt.Errorf("row %q: %w", row.ID, err))
		}
		events = append(events, model.Event{ID: row.ID, Attributes: attrs})
	}

	r.storeCache(events)
	return cloneEvents(events), nil
}

// Get returns the event with the given id, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*model.Event, error) {
	events, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return Find(events, id), nil
}

// Add inserts a new event. Entries with an empty name or prompt are dropped
// before the write. A duplicate id is reported by the backend.
func (r *Repository) Add(ctx context.Context, id string, attrs model.Attributes) error {
	clean := model.Sanitize(attrs)
	data, err := model.EncodeAttributes(clean)
	if err != nil {
		return err
	}
	err = r.store.InsertEvent(ctx, id, data)
	r.invalidate()
	if err != nil {
		return r.fail("add", id, err)
	}
	r.logger.Info("event added", "event_id", id, "attributes", len(clean))
	r.publish(ctx, notify.TopicEventCreated, id, notify.EventCreated{Event: &model.Event{ID: id, Attributes: clean}})
	return nil
}

// Update replaces the attributes of an existing event. The new mapping is
// written as a whole; nothing is merged with the stored one.
func (r *Repository) Update(ctx context.Context, id string, attrs model.Attributes) error {
	clean := model.Sanitize(attrs)
	data, err := model.EncodeAttributes(clean)
	if err != nil {
		return err
	}
	err = r.store.UpdateEvent(ctx, id, data)
	r.invalidate()
	if err != nil {
		return r.fail("update", id, err)
	}
	r.logger.Info("event updated", "event_id", id, "attributes", len(clean))
	r.publish(ctx, notify.TopicEventUpdated, id, notify.EventUpdated{Event: &model.Event{ID: id, Attributes: clean}})
	return nil
}

// Delete removes an event. Deleting a missing id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.store.DeleteEvent(ctx, id)
	r.invalidate()
	if err != nil {
		return r.fail("delete", id, err)
	}
	r.logger.Info("event deleted", "event_id", id)
	r.publish(ctx, notify.TopicEventDeleted, id, notify.EventDeleted{EventID: id})
	return nil
}

// Find returns the event with the given id from events, or nil.
func Find(events []model.Event, id string) *model.Event {
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	return nil
}

// IDs returns the ids of events in order.
func IDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

func (r *Repository) fail(op, id string, err error) error {
	r.logger.Error("backend operation failed", "op", op, "event_id", id, "err", err)
	return &BackendError{Op: op, ID: id, Err: err}
}

// publish is best-effort; failures are logged but do not fail the write.
func (r *Repository) publish(ctx context.Context, topic, id string, payload any) {
	if err := r.publisher.Publish(ctx, topic, payload); err != nil {
		r.logger.Warn("failed to publish notification", "topic", topic, "event_id", id, "err", err)
	}
}

func (r *Repository) fromCache() ([]model.Event, bool) {
	if r.cacheTTL <= 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil || r.now().Sub(r.cachedAt) >= r.cacheTTL {
		return nil, false
	}
	return cloneEvents(r.cached), true
}

func (r *Repository) storeCache(events []model.Event) {
	if r.cacheTTL <= 0 {
		return
	}
	r.mu.Lock()
	r.cached = cloneEvents(events)
	r.cachedAt = r.now()
	r.mu.Unlock()
}

func (r *Repository) invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func cloneEvents(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	for i, e := range events {
		out[i] = model.Event{ID: e.ID, Attributes: e.Attributes.Clone()}
	}
	return out
}
