// Package audit records account and step-up events. Recording never fails
// the caller: store and publish errors are logged and dropped.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/id"
)

const (
	DefaultListLimit = 50
	maxListLimit     = 200
)

type Store interface {
	Put(ctx context.Context, e *domain.AuditEvent) error
	ListByClient(ctx context.Context, clientID string, limit int32) ([]domain.AuditEvent, error)
}

type Publisher interface {
	Publish(ctx context.Context, e domain.AuditEvent) error
}

type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

// NewService builds the recorder. publisher may be nil.
func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher, now: time.Now}
}

func (s *Service) Record(ctx context.Context, clientID, action, detail string) {
	e := domain.AuditEvent{
		ClientID:  clientID,
		EventID:   id.New(),
		Action:    action,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Put(ctx, &e); err != nil {
		slog.Warn("audit store failed", "client_id", clientID, "action", action, "err", err)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("audit publish failed", "client_id", clientID, "action", action, "err", err)
	}
}

// List returns the client's newest events first.
func (s *Service) List(ctx context.Context, clientID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	events, err := s.store.ListByClient(ctx, clientID, int32(limit))
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	return events, nil
}
