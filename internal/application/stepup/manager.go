package stepup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/biopass-web/internal/application/credcache"
)

// CaptureFactory builds the capture controller and frame sink for a new session.
type CaptureFactory func() (Capturer, FrameSink)

// Deps groups the collaborators shared by every session.
type Deps struct {
	Remote      Remote
	Cache       *credcache.Cache
	NewCapture  CaptureFactory
	Diagnostics Diagnostics // optional
	Audit       Recorder    // optional
	Metrics     Observer    // optional
}

type managed struct {
	session  *Session
	lastUsed time.Time
}

// Manager owns one Session per client id. Sessions idle for longer than the
// sweep bound, or whose backend tokens expired, are forgotten.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*managed
}

func NewManager(deps Deps) *Manager {
	if deps.Audit == nil {
		deps.Audit = nopRecorder{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopObserver{}
	}
	return &Manager{deps: deps, now: time.Now, sessions: make(map[string]*managed)}
}

// WithClock replaces the time source used for idle tracking.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Session returns the client's session, creating it on first use. A fresh
// cached face verification restores FaceVerified without replaying capture.
func (m *Manager) Session(ctx context.Context, clientID string) *Session {
	m.mu.Lock()
	if e, ok := m.sessions[clientID]; ok {
		e.lastUsed = m.now()
		m.mu.Unlock()
		return e.session
	}

	capture, frames := m.deps.NewCapture()
	s := &Session{
		clientID: clientID,
		capture:  capture,
		frames:   frames,
		remote:   m.deps.Remote,
		cache:    m.deps.Cache.For(clientID),
		diag:     m.deps.Diagnostics,
		audit:    m.deps.Audit,
		metrics:  m.deps.Metrics,
		onExpire: m.forget,
	}
	m.sessions[clientID] = &managed{session: s, lastUsed: m.now()}
	m.mu.Unlock()

	s.restore(ctx)
	return s
}

// Unlocked reports whether the client's live session has passed OTP.
// It never creates a session.
func (m *Manager) Unlocked(clientID string) bool {
	m.mu.Lock()
	e, ok := m.sessions[clientID]
	if ok {
		e.lastUsed = m.now()
	}
	m.mu.Unlock()
	return ok && e.session.Unlocked()
}

// Drop resets and forgets the client's session.
func (m *Manager) Drop(clientID string) {
	m.mu.Lock()
	e, ok := m.sessions[clientID]
	delete(m.sessions, clientID)
	m.mu.Unlock()
	if ok {
		e.session.Reset()
	}
}

// forget removes s if it is still the client's live session.
func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[s.clientID]; ok && e.session == s {
		delete(m.sessions, s.clientID)
	}
}

// EvictIdle resets and forgets every session unused for at least idle and
// returns how many were removed.
func (m *Manager) EvictIdle(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	var stale []*Session
	m.mu.Lock()
	for id, e := range m.sessions {
		if !e.lastUsed.After(cutoff) {
			stale = append(stale, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Reset()
	}
	if len(stale) > 0 {
		slog.Debug("evicted idle step-up sessions", "count", len(stale))
	}
	return len(stale)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(idle)
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
