package registry

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceIsReferenceCounted(t *testing.T) {
	r := New()
	user := uuid.New()

	assert.True(t, r.Register(user, "conn-1"))
	assert.True(t, r.IsOnline(user))

	// A second connection is not a presence change.
	assert.False(t, r.Register(user, "conn-2"))
	assert.Equal(t, 2, r.ConnectionCount(user))

	// Closing one of two connections keeps the user online.
	assert.False(t, r.Unregister(user, "conn-1"))
	assert.True(t, r.IsOnline(user))

	// Closing the last connection flips presence.
	assert.True(t, r.Unregister(user, "conn-2"))
	assert.False(t, r.IsOnline(user))
	assert.Equal(t, 0, r.ConnectionCount(user))
}

func TestRegisterIsIdempotentPerConnection(t *testing.T) {
	r := New()
	user := uuid.New()

	r.Register(user, "conn-1")
	r.Register(user, "conn-1")
	assert.Equal(t, 1, r.ConnectionCount(user))
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	r := New()
	assert.False(t, r.Unregister(uuid.New(), "ghost"))
}

func TestListOnline(t *testing.T) {
	r := New()
	a, b := uuid.New(), uuid.New()

	r.Register(a, "a-1")
	r.Register(b, "b-1")
	r.Register(b, "b-2")
	assert.ElementsMatch(t, []uuid.UUID{a, b}, r.ListOnline())

	r.Unregister(b, "b-1")
	r.Unregister(b, "b-2")
	assert.ElementsMatch(t, []uuid.UUID{a}, r.ListOnline())
}

func TestStatusHandlerFiresOnTransitionsOnly(t *testing.T) {
	r := New()
	user := uuid.New()

	type change struct {
		userID uuid.UUID
		online bool
	}
	var mu sync.Mutex
	var changes []change
	r.SetStatusHandler(func(userID uuid.UUID, online bool) {
		mu.Lock()
		changes = append(changes, change{userID, online})
		mu.Unlock()
	})

	r.Register(user, "conn-1")
	r.Register(user, "conn-2")
	r.Unregister(user, "conn-1")
	r.Unregister(user, "conn-2")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, change{user, true}, changes[0])
	assert.Equal(t, change{user, false}, changes[1])
}

func TestConcurrentRegistration(t *testing.T) {
	r := New()
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(user, uuid.New().String())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.ConnectionCount(user))
	assert.True(t, r.IsOnline(user))
}
