package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/infrastructure/memstore"
	"github.com/biopass-web/internal/pkg/seal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T, ttl time.Duration) (*Tokens, *memstore.Store) {
	t.Helper()
	sealer, err := seal.New([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	store := memstore.New()
	return NewTokens(store, sealer, ttl), store
}

func TestTokens_SealedAtRest(t *testing.T) {
	tokens, store := newTokens(t, 0)
	require.NoError(t, tokens.Save(context.Background(), "c1", "access-secret", "refresh-secret"))

	raw, ok, err := store.Get(context.Background(), "c1", domain.StateKeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "access-secret")

	got, err := tokens.Access(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "access-secret", got)
}

func TestTokens_BoundToClient(t *testing.T) {
	tokens, store := newTokens(t, 0)
	require.NoError(t, tokens.Save(context.Background(), "c1", "acc", "ref"))
	raw, _, _ := store.Get(context.Background(), "c1", domain.StateKeyAccessToken)
	require.NoError(t, store.Put(context.Background(), "c2", domain.StateKeyAccessToken, raw, time.Time{}))

	_, err := tokens.Access(context.Background(), "c2")

	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokens_Clear(t *testing.T) {
	tokens, _ := newTokens(t, time.Hour)
	require.NoError(t, tokens.Save(context.Background(), "c1", "acc", "ref"))

	require.NoError(t, tokens.Clear(context.Background(), "c1"))

	_, err := tokens.Access(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	_, err = tokens.Refresh(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
