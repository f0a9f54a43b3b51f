// ABOUTME: Immutable snapshot of enabled device credentials for verification
// ABOUTME: Published via atomic pointer swap so readers never block or see a partial rebuild

package auth

import (
	"sync/atomic"
	"time"

	"github.com/ChrisTracy/gate-opener/internal/store"
)

// Entry is the cached credential record for one enabled device. Device names
// are not unique, so entries are keyed by the per-registration auth secret;
// the name is kept for the token binding check and for audit output.
type Entry struct {
	DeviceName string
	IsAdmin    bool
}

// snapshot is an immutable point-in-time view of enabled devices. A snapshot
// is never mutated after publication.
type snapshot struct {
	bySecret map[string]Entry
	builtAt  time.Time
}

// Cache holds the currently published credential snapshot. Lookup is a
// single atomic pointer read followed by a map access, so verification never
// contends with a refresh in progress.
type Cache struct {
	snap atomic.Pointer[snapshot]
}

// NewCache creates a cache with an empty snapshot. Until the first refresh
// completes, every lookup misses and all tokens are rejected.
func NewCache() *Cache {
	c := &Cache{}
	c.snap.Store(&snapshot{bySecret: map[string]Entry{}})
	return c
}

// Lookup returns the cached entry for the given auth secret.
func (c *Cache) Lookup(authSecret string) (Entry, bool) {
	s := c.snap.Load()
	e, ok := s.bySecret[authSecret]
	return e, ok
}

// Replace builds a fresh snapshot from the given device records and
// atomically publishes it, discarding the previous one.
func (c *Cache) Replace(devices []*store.Device) {
	bySecret := make(map[string]Entry, len(devices))
	for _, d := range devices {
		if d.AuthSecret == "" {
			continue
		}
		bySecret[d.AuthSecret] = Entry{
			DeviceName: d.Name,
			IsAdmin:    d.IsAdmin,
		}
	}
	c.snap.Store(&snapshot{bySecret: bySecret, builtAt: time.Now()})
}

// Len returns the number of devices in the current snapshot.
func (c *Cache) Len() int {
	return len(c.snap.Load().bySecret)
}

// BuiltAt returns when the current snapshot was published. Zero for the
// initial empty snapshot.
func (c *Cache) BuiltAt() time.Time {
	return c.snap.Load().builtAt
}
