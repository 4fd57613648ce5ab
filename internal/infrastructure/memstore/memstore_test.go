package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, "c1", "k", "v", time.Time{}))
	v, ok, err := s.Get(ctx, "c1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = s.Get(ctx, "c2", "k")
	assert.False(t, ok, "namespaces are per client")

	require.NoError(t, s.Delete(ctx, "c1", "k"))
	_, ok, _ = s.Get(ctx, "c1", "k")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	s := New()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "c1", "k", "v", now.Add(time.Second)))
	_, ok, _ := s.Get(ctx, "c1", "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = s.Get(ctx, "c1", "k")
	assert.False(t, ok)
}

func TestStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "c1", "a", "1", time.Time{}))
	require.NoError(t, s.Put(ctx, "c1", "b", "2", time.Time{}))
	require.NoError(t, s.Put(ctx, "c2", "a", "3", time.Time{}))

	require.NoError(t, s.DeleteAll(ctx, "c1"))

	_, ok, _ := s.Get(ctx, "c1", "a")
	assert.False(t, ok)
	v, ok, _ := s.Get(ctx, "c2", "a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestAuditLog_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	l := NewAuditLog()
	for _, action := range []string{"login", "otp_sent", "otp_verified"} {
		require.NoError(t, l.Put(ctx, &domain.AuditEvent{ClientID: "c1", Action: action}))
	}
	require.NoError(t, l.Put(ctx, &domain.AuditEvent{ClientID: "c2", Action: "login"}))

	got, err := l.ListByClient(ctx, "c1", 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "otp_verified", got[0].Action)
	assert.Equal(t, "otp_sent", got[1].Action)
}
