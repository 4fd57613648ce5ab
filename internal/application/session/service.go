package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/id"
	"github.com/biopass-web/internal/pkg/validate"
)

type LoginResult struct {
	Bearer   string          `json:"bearer"`
	ClientID string          `json:"client_id"`
	Account  *domain.Account `json:"user"`
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, clientID string) error
	Me(ctx context.Context, clientID string) (*domain.Account, error)
}

type backend interface {
	Login(ctx context.Context, clientID string, req domain.LoginRequest) (*domain.Account, error)
	Logout(ctx context.Context, clientID string) error
	Me(ctx context.Context, clientID string) (*domain.Account, error)
}

type signer interface {
	Sign(clientID, username string) (string, error)
}

type stepUpSessions interface {
	Drop(clientID string)
}

type verificationCache interface {
	Invalidate(ctx context.Context, clientID string)
}

type recorder interface {
	Record(ctx context.Context, clientID, action, detail string)
}

type clientState interface {
	DeleteAll(ctx context.Context, clientID string) error
}

type service struct {
	backend backend
	signer  signer
	stepup  stepUpSessions
	cache   verificationCache
	audit   recorder
	state   clientState
}

func NewService(backend backend, signer signer, stepup stepUpSessions, cache verificationCache, audit recorder, state clientState) Service {
	return &service{
		backend: backend,
		signer:  signer,
		stepup:  stepup,
		cache:   cache,
		audit:   audit,
		state:   state,
	}
}

// Login authenticates against the backend under a fresh client id and
// returns a bearer bound to that id.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	clientID := id.New()
	acct, err := s.backend.Login(ctx, clientID, req)
	if err != nil {
		return nil, err
	}
	bearer, err := s.signer.Sign(clientID, acct.Username)
	if err != nil {
		return nil, fmt.Errorf("sign bearer: %w", err)
	}
	s.audit.Record(ctx, clientID, domain.AuditLogin, acct.Email)
	slog.Info("client logged in", "client_id", clientID, "user_id", acct.ID)
	return &LoginResult{Bearer: bearer, ClientID: clientID, Account: acct}, nil
}

// Logout clears the backend tokens, the cached face verification and the
// step-up session, then purges whatever else is stored for the client.
func (s *service) Logout(ctx context.Context, clientID string) error {
	s.stepup.Drop(clientID)
	s.cache.Invalidate(ctx, clientID)
	if err := s.backend.Logout(ctx, clientID); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	if err := s.state.DeleteAll(ctx, clientID); err != nil {
		slog.Warn("purging client state", "client_id", clientID, "err", err)
	}
	s.audit.Record(ctx, clientID, domain.AuditLogout, "")
	return nil
}

func (s *service) Me(ctx context.Context, clientID string) (*domain.Account, error) {
	acct, err := s.backend.Me(ctx, clientID)
	if errors.Is(err, domain.ErrTokenExpired) {
		s.stepup.Drop(clientID)
		s.audit.Record(ctx, clientID, domain.AuditTokenExpired, "")
	}
	return acct, err
}
