// Package vault gates access to the stored credential list.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/validate"
)

// Store is the backend credential list.
type Store interface {
	ListPasswords(ctx context.Context, clientID string) ([]domain.CredentialEntry, error)
	AddPassword(ctx context.Context, clientID string, entry domain.CredentialEntry) error
}

// Gate reports whether a client's live step-up session is unlocked, and
// forgets it once the backend session behind it has expired.
type Gate interface {
	Unlocked(clientID string) bool
	Drop(clientID string)
}

// VerificationCache answers whether a client holds a fresh face verification.
type VerificationCache interface {
	Read(ctx context.Context, clientID string) bool
}

// Recorder writes best-effort audit events.
type Recorder interface {
	Record(ctx context.Context, clientID, action, detail string)
}

// FetchObserver counts fetch outcomes.
type FetchObserver interface {
	ObserveFetch(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string) {}

type Service struct {
	store    Store
	gate     Gate
	cache    VerificationCache
	audit    Recorder
	observer FetchObserver
}

func NewService(store Store, gate Gate, cache VerificationCache, audit Recorder) *Service {
	return &Service{store: store, gate: gate, cache: cache, audit: audit, observer: nopObserver{}}
}

func (s *Service) WithObserver(o FetchObserver) *Service {
	s.observer = o
	return s
}

// FetchIfUnlocked lists the client's credentials. The unlocked check runs on
// every call and the list itself is never cached.
func (s *Service) FetchIfUnlocked(ctx context.Context, clientID string) ([]domain.CredentialEntry, error) {
	if !s.unlocked(ctx, clientID) {
		s.observer.ObserveFetch("locked")
		return nil, domain.ErrLocked
	}
	entries, err := s.store.ListPasswords(ctx, clientID)
	if err != nil {
		s.observer.ObserveFetch("error")
		s.dropIfExpired(clientID, err)
		return nil, fmt.Errorf("list passwords: %w", err)
	}
	s.observer.ObserveFetch("ok")
	if entries == nil {
		entries = []domain.CredentialEntry{}
	}
	s.audit.Record(ctx, clientID, domain.AuditPasswordsListed, fmt.Sprintf("%d entries", len(entries)))
	return entries, nil
}

// Add stores a new credential entry.
func (s *Service) Add(ctx context.Context, clientID string, entry domain.CredentialEntry) error {
	entry.DomainName = strings.TrimSpace(entry.DomainName)
	entry.Link = strings.TrimSpace(entry.Link)
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	if err := s.store.AddPassword(ctx, clientID, entry); err != nil {
		s.dropIfExpired(clientID, err)
		return fmt.Errorf("add password: %w", err)
	}
	s.audit.Record(ctx, clientID, domain.AuditPasswordAdded, entry.DomainName)
	return nil
}

func (s *Service) unlocked(ctx context.Context, clientID string) bool {
	return s.gate.Unlocked(clientID) || s.cache.Read(ctx, clientID)
}

func (s *Service) dropIfExpired(clientID string, err error) {
	if errors.Is(err, domain.ErrTokenExpired) {
		s.gate.Drop(clientID)
	}
}
