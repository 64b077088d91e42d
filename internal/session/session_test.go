package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrincipal() Principal {
	return Principal{
		ID:       uuid.New(),
		Username: "drjones",
		Role:     "doctor",
		FullName: "Dr. Jones",
	}
}

func TestCreateAndGet(t *testing.T) {
	store := NewStore(DefaultTTL)
	sess := store.Create(testPrincipal())

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess.Principal, got.Principal)
	assert.Equal(t, 1, store.Len())
}

func TestGetUnknownSession(t *testing.T) {
	store := NewStore(DefaultTTL)
	_, ok := store.Get(uuid.NewString())
	assert.False(t, ok)
}

func TestExpiryBoundary(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	store := NewStore(2 * time.Hour).WithClock(func() time.Time { return now })

	sess := store.Create(testPrincipal())

	// One second before the window closes the session is still valid.
	now = start.Add(2*time.Hour - time.Second)
	_, ok := store.Get(sess.ID)
	assert.True(t, ok)

	// Exactly at the boundary it still holds; validity is a closed
	// interval on the expiry instant.
	now = start.Add(2 * time.Hour)
	_, ok = store.Get(sess.ID)
	assert.True(t, ok)

	// One second past, it is gone and evicted.
	now = start.Add(2*time.Hour + time.Second)
	_, ok = store.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestExpiryIsNotRefreshedByActivity(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	store := NewStore(time.Hour).WithClock(func() time.Time { return now })

	sess := store.Create(testPrincipal())

	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Minute)
		_, ok := store.Get(sess.ID)
		require.True(t, ok)
	}

	// 61 minutes after authentication the session is expired even
	// though it was read continuously.
	now = start.Add(61 * time.Minute)
	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewStore(DefaultTTL)
	sess := store.Create(testPrincipal())

	store.Delete(sess.ID)
	store.Delete(sess.ID)
	store.Delete("never-existed")

	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}

func TestConcurrentSessions(t *testing.T) {
	store := NewStore(DefaultTTL)
	a := store.Create(testPrincipal())
	b := store.Create(Principal{ID: uuid.New(), Username: "reception", Role: "secretary"})

	store.Delete(a.ID)

	_, ok := store.Get(b.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestContextRoundTrip(t *testing.T) {
	store := NewStore(DefaultTTL)
	sess := store.Create(testPrincipal())

	ctx := NewContext(context.Background(), sess)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
