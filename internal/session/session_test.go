package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/domain"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "priya",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestEstablishPersistsUnderFixedKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)
	require.NoError(t, s.Establish(ctx, "tok-1", domain.Profile{Username: "priya", FullName: "Priya R"}))

	v, ok, _ := store.GetValue(ctx, KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)
	u, ok, _ := store.GetValue(ctx, KeyUser)
	assert.True(t, ok)
	assert.JSONEq(t, `{"username":"priya","fullName":"Priya R"}`, u)

	restored := New(store)
	require.NoError(t, restored.Load(ctx))
	p, active := restored.Profile()
	assert.True(t, active)
	assert.Equal(t, "Priya R", p.FullName)
	assert.Equal(t, "tok-1", restored.Token())
}

func TestLoadWithoutToken(t *testing.T) {
	s := New(NewMemoryStore())
	require.NoError(t, s.Load(context.Background()))
	assert.False(t, s.Active())
}

func TestInvalidateClearsOnceAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)
	require.NoError(t, s.Establish(ctx, "tok-1", domain.Profile{Username: "priya"}))

	resets := 0
	s.OnInvalidate(func() { resets++ })

	assert.True(t, s.Invalidate(ctx))
	assert.False(t, s.Invalidate(ctx))
	assert.Equal(t, 1, resets)
	assert.Equal(t, 2, store.Deletes)
	assert.Empty(t, s.Token())
	_, ok, _ := store.GetValue(ctx, KeyToken)
	assert.False(t, ok)
}

func TestExpiryFromJWT(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	s := New(NewMemoryStore())
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Establish(ctx, signed(t, now.Add(time.Hour)), domain.Profile{Username: "priya"}))
	exp, ok := s.Expiry()
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Hour).Unix(), exp.Unix())
	assert.False(t, s.Expired())

	require.NoError(t, s.Establish(ctx, signed(t, now.Add(-time.Minute)), domain.Profile{Username: "priya"}))
	assert.True(t, s.Expired())
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	s := New(NewMemoryStore())
	require.NoError(t, s.Establish(context.Background(), "opaque", domain.Profile{}))
	_, ok := s.Expiry()
	assert.False(t, ok)
	assert.False(t, s.Expired())
}
