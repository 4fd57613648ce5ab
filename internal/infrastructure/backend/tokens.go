package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/seal"
)

// Store is the per-client key/value store holding the backend tokens.
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Put(ctx context.Context, clientID, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, clientID, key string) error
}

// Tokens keeps a client's backend access and refresh tokens sealed at rest.
type Tokens struct {
	store  Store
	sealer *seal.Sealer
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token keeper. Stored tokens expire after ttl; zero keeps them until cleared.
func NewTokens(store Store, sealer *seal.Sealer, ttl time.Duration) *Tokens {
	return &Tokens{store: store, sealer: sealer, ttl: ttl, now: time.Now}
}

func (t *Tokens) Save(ctx context.Context, clientID, access, refresh string) error {
	if err := t.put(ctx, clientID, domain.StateKeyAccessToken, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return t.put(ctx, clientID, domain.StateKeyRefreshToken, refresh)
}

// Access returns the stored access token or domain.ErrTokenExpired.
func (t *Tokens) Access(ctx context.Context, clientID string) (string, error) {
	return t.get(ctx, clientID, domain.StateKeyAccessToken)
}

// Refresh returns the stored refresh token or domain.ErrTokenExpired.
func (t *Tokens) Refresh(ctx context.Context, clientID string) (string, error) {
	return t.get(ctx, clientID, domain.StateKeyRefreshToken)
}

func (t *Tokens) Clear(ctx context.Context, clientID string) error {
	if err := t.store.Delete(ctx, clientID, domain.StateKeyAccessToken); err != nil {
		return fmt.Errorf("clear access token: %w", err)
	}
	if err := t.store.Delete(ctx, clientID, domain.StateKeyRefreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (t *Tokens) put(ctx context.Context, clientID, key, token string) error {
	sealed, err := t.sealer.Seal(token, aad(clientID, key))
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	var expiresAt time.Time
	if t.ttl > 0 {
		expiresAt = t.now().Add(t.ttl)
	}
	if err := t.store.Put(ctx, clientID, key, sealed, expiresAt); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (t *Tokens) get(ctx context.Context, clientID, key string) (string, error) {
	sealed, ok, err := t.store.Get(ctx, clientID, key)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("no %s: %w", key, domain.ErrTokenExpired)
	}
	plain, err := t.sealer.Open(sealed, aad(clientID, key))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", key, domain.ErrTokenExpired)
	}
	return plain, nil
}

func aad(clientID, key string) string {
	return clientID + "/" + key
}
