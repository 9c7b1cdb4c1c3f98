package onboarding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Put(1, Session{State: StateAwaitingUserName, FamilyID: 7})
	got, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, Session{State: StateAwaitingUserName, FamilyID: 7}, got)

	// Idle is the absence of a session.
	store.Put(1, Session{State: StateIdle})
	_, ok = store.Get(1)
	assert.False(t, ok)

	store.Put(2, Session{State: StateAwaitingFamilyName})
	store.Delete(2)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_ConcurrentUsers(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			store.Put(userID, Session{State: StateAwaitingFamilyName})
			store.Get(userID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting_user_name", StateAwaitingUserName.String())
	assert.Equal(t, "unknown", State(99).String())
}
