// Package session keeps per-browser panel state (selections, editable
// tables, pending notices) in memory, keyed by a cookie.
//
// A background reaper drops sessions that have been idle longer than the
// configured TTL.
package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alfredjeanlab/eventdesk/internal/idgen"
	"github.com/alfredjeanlab/eventdesk/internal/model"
)

// CookieName is the cookie carrying the session id.
const CookieName = "eventdesk_session"

// Notice levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// Notice is a one-shot message shown on the next render.
type Notice struct {
	Section string // "view", "add", "edit", "delete" or "" for page-wide
	Level   string
	Text    string
}

// Session is the state of one operator's browser. Fields must only be
// touched between Manager.Acquire and Release.
type Session struct {
	ID string

	ViewID      string
	CreateID    string
	CreateTable *model.Table
	EditID      string
	EditTable   *model.Table
	DeleteID    string

	notices []Notice

	mu sync.Mutex

	lastSeen time.Time // guarded by Manager.mu
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		CreateTable: &model.Table{},
		lastSeen:    now,
	}
}

// AddNotice queues a notice for the next render.
func (s *Session) AddNotice(section, level, text string) {
	s.notices = append(s.notices, Notice{Section: section, Level: level, Text: text})
}

// TakeNotices returns the queued notices and clears the queue.
func (s *Session) TakeNotices() []Notice {
	n := s.notices
	s.notices = nil
	return n
}

// ClearEdit forgets the edit selection and its table.
func (s *Session) ClearEdit() {
	s.EditID = ""
	s.EditTable = nil
}

// Release unlocks the session acquired from Manager.Acquire.
func (s *Session) Release() {
	s.mu.Unlock()
}

// Options configures a Manager.
type Options struct {
	// TTL is how long a session may stay idle before the reaper drops it.
	// Default: 30 minutes.
	TTL time.Duration
	// Secure marks the cookie Secure (HTTPS only).
	Secure bool
}

// Manager owns every live session.
type Manager struct {
	ttl    time.Duration
	secure bool
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// NewManager creates an empty session manager.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Manager{
		ttl:      opts.TTL,
		secure:   opts.Secure,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the caller's session, creating one (and setting the
// cookie on w) when the request carries no known session. The session is
// returned locked; the caller must Release it.
func (m *Manager) Acquire(w http.ResponseWriter, r *http.Request) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	var sess *Session
	if c, err := r.Cookie(CookieName); err == nil && idgen.ValidSession(c.Value) {
		sess = m.sessions[c.Value]
	}
	if sess == nil {
		id, err := idgen.Session()
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("new session: %w", err)
		}
		sess = newSession(id, now)
		m.sessions[id] = sess
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	// Touch before unlocking so a sweep running while we wait on sess.mu
	// sees the session as active.
	sess.lastSeen = now
	m.mu.Unlock()

	sess.mu.Lock()
	return sess, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions currently held by a request are skipped.
func (m *Manager) Sweep() int {
	now := m.now()
	removed := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) <= m.ttl {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(m.sessions, id)
		sess.mu.Unlock()
		removed++
	}
	return removed
}

// StartReaper launches a background goroutine that sweeps idle sessions
// every interval. Call Stop to shut it down.
func (m *Manager) StartReaper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	m.reaperStop = make(chan struct{})
	m.reaperDone = make(chan struct{})

	go m.reapLoop(interval)
	slog.Info("session: reaper started", "ttl", m.ttl, "sweep_interval", interval)
}

// Stop shuts down the reaper goroutine.
func (m *Manager) Stop() {
	if m.reaperStop != nil {
		close(m.reaperStop)
		<-m.reaperDone
		m.reaperStop = nil
		m.reaperDone = nil
	}
}

func (m *Manager) reapLoop(interval time.Duration) {
	defer close(m.reaperDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.reaperStop:
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("session: reaper dropped idle sessions", "count", n)
			}
		}
	}
}
