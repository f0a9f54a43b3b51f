// ABOUTME: Tests for the cache refresher
// ABOUTME: Covers rebuilds, fail-open on store errors, and the periodic loop

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTracy/gate-opener/internal/store"
)

// flakyStore wraps a MemoryStore and can be told to fail ListEnabled.
type flakyStore struct {
	*store.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (f *flakyStore) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *flakyStore) ListEnabled(ctx context.Context) ([]*store.Device, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("store unavailable")
	}
	return f.MemoryStore.ListEnabled(ctx)
}

func TestRefresher_Refresh(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &store.Device{Name: "doorbell", AuthSecret: "s1", InviteCode: "i1", Enabled: true}))
	require.NoError(t, st.Insert(ctx, &store.Device{Name: "pending", AuthSecret: "s2", InviteCode: "i2"}))

	cache := NewCache()
	r := NewRefresher(st, cache, time.Hour)

	require.NoError(t, r.Refresh(ctx))

	_, ok := cache.Lookup("s1")
	assert.True(t, ok)
	_, ok = cache.Lookup("s2")
	assert.False(t, ok, "disabled device must not be cached")
}

func TestRefresher_FailOpenKeepsLastGoodSnapshot(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	ctx := context.Background()
	require.NoError(t, fs.Insert(ctx, &store.Device{Name: "doorbell", AuthSecret: "s1", InviteCode: "i1", Enabled: true}))

	cache := NewCache()
	r := NewRefresher(fs, cache, time.Hour)
	require.NoError(t, r.Refresh(ctx))

	fs.setFail(true)
	err := r.Refresh(ctx)
	assert.Error(t, err)

	// Existing snapshot still serves
	_, ok := cache.Lookup("s1")
	assert.True(t, ok, "last good snapshot must be retained on store failure")
}

func TestRefresher_ForceRefreshIsSynchronous(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &store.Device{Name: "doorbell", AuthSecret: "s1", InviteCode: "i1"}))

	cache := NewCache()
	r := NewRefresher(st, cache, time.Hour)
	require.NoError(t, r.Refresh(ctx))

	_, ok := cache.Lookup("s1")
	require.False(t, ok)

	// Enable and force: the change must be visible immediately after return
	_, err := st.UpdateEnabled(ctx, "i1", true)
	require.NoError(t, err)
	require.NoError(t, r.ForceRefresh(ctx))

	_, ok = cache.Lookup("s1")
	assert.True(t, ok)
}

func TestRefresher_PeriodicLoop(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &store.Device{Name: "doorbell", AuthSecret: "s1", InviteCode: "i1", Enabled: true}))

	cache := NewCache()
	r := NewRefresher(st, cache, 10*time.Millisecond)
	r.Start()
	defer r.Close()

	deadline := time.After(2 * time.Second)
	for cache.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("periodic refresh never populated the cache")
		case <-time.After(5 * time.Millisecond):
		}
	}

	_, ok := cache.Lookup("s1")
	assert.True(t, ok)
}

func TestRefresher_CloseIsIdempotent(t *testing.T) {
	r := NewRefresher(store.NewMemoryStore(), NewCache(), time.Hour)
	r.Start()
	r.Close()
	r.Close()
}

func TestRefresher_ConcurrentRefreshesSerialize(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &store.Device{Name: "doorbell", AuthSecret: "s1", InviteCode: "i1", Enabled: true}))

	cache := NewCache()
	r := NewRefresher(st, cache, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Refresh(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}
