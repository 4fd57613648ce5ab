package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/id"
	"github.com/biopass-web/internal/pkg/validate"
)

// SignupResult carries a bearer when the backend signed the new account in.
type SignupResult struct {
	Bearer   string          `json:"bearer,omitempty"`
	ClientID string          `json:"client_id,omitempty"`
	Account  *domain.Account `json:"user"`
}

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*SignupResult, error)
}

type backend interface {
	Signup(ctx context.Context, clientID string, req domain.SignupRequest) (*domain.Account, bool, error)
}

type jwtSigner interface {
	Sign(clientID, username string) (string, error)
}

type recorder interface {
	Record(ctx context.Context, clientID, action, detail string)
}

type service struct {
	backend     backend
	jwtProvider jwtSigner
	audit       recorder
}

type ServiceDeps struct {
	Backend     backend
	JWTProvider jwtSigner
	Audit       recorder
}

func NewService(deps ServiceDeps) Service {
	return &service{
		backend:     deps.Backend,
		jwtProvider: deps.JWTProvider,
		audit:       deps.Audit,
	}
}

// Signup normalizes and validates the form, then forwards it to the backend.
// Phone keeps digits only; email is trimmed and lowercased.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*SignupResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = validate.Digits(req.Phone)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	clientID := id.New()
	acct, signedIn, err := s.backend.Signup(ctx, clientID, req)
	if err != nil {
		return nil, err
	}
	if !signedIn {
		return &SignupResult{Account: acct}, nil
	}

	bearer, err := s.jwtProvider.Sign(clientID, acct.Username)
	if err != nil {
		return nil, fmt.Errorf("sign bearer: %w", err)
	}
	s.audit.Record(ctx, clientID, domain.AuditLogin, "signup")
	slog.Info("account registered", "client_id", clientID, "user_id", acct.ID)
	return &SignupResult{Bearer: bearer, ClientID: clientID, Account: acct}, nil
}
