// Package memstore is an in-memory client-state store for development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/biopass-web/internal/domain"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Store keeps client state in process memory. State is lost on restart.
type Store struct {
	mu    sync.RWMutex
	items map[string]map[string]entry
	now   func() time.Time
}

func New() *Store {
	return &Store{items: make(map[string]map[string]entry), now: time.Now}
}

func (s *Store) Get(_ context.Context, clientID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[clientID][key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Put(_ context.Context, clientID, key, value string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.items[clientID]
	if !ok {
		ns = make(map[string]entry)
		s.items[clientID] = ns
	}
	ns[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (s *Store) Delete(_ context.Context, clientID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.items[clientID]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(s.items, clientID)
		}
	}
	return nil
}

func (s *Store) DeleteAll(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, clientID)
	return nil
}

// AuditLog keeps audit events in process memory, newest last.
type AuditLog struct {
	mu     sync.RWMutex
	events map[string][]domain.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{events: make(map[string][]domain.AuditEvent)}
}

func (l *AuditLog) Put(_ context.Context, e *domain.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[e.ClientID] = append(l.events[e.ClientID], *e)
	return nil
}

// ListByClient returns the newest events first, at most limit of them.
func (l *AuditLog) ListByClient(_ context.Context, clientID string, limit int32) ([]domain.AuditEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.events[clientID]
	out := make([]domain.AuditEvent, 0, min(len(all), int(limit)))
	for i := len(all) - 1; i >= 0 && len(out) < int(limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}
