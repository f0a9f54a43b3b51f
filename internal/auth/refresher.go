// ABOUTME: Periodic and on-demand rebuilds of the credential cache from the device store
// ABOUTME: Single-flight per refresh, fail-open to the last good snapshot on store errors

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChrisTracy/gate-opener/internal/store"
)

// Refresher rebuilds the credential cache from the device store, both on a
// fixed interval and on demand after admin actions.
type Refresher struct {
	store    store.DeviceStore
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // serializes rebuilds
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRefresher creates a refresher for the given store and cache. Start must
// be called to begin the periodic loop; Refresh and ForceRefresh work either
// way.
func NewRefresher(st store.DeviceStore, cache *Cache, interval time.Duration) *Refresher {
	return &Refresher{
		store:    st,
		cache:    cache,
		interval: interval,
		logger:   slog.Default().With("component", "refresher"),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic refresh loop in a background goroutine.
func (r *Refresher) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Close stops the periodic loop and waits for it to exit. Safe to call more
// than once.
func (r *Refresher) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// Refresh reads all enabled devices and atomically publishes a new cache
// snapshot. On store failure the previous snapshot is retained and the error
// is returned to the caller; the periodic loop logs it and keeps serving
// stale data.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuildLocked(ctx)
}

// ForceRefresh is the synchronous variant used after enable/reject so that
// admin-driven state changes are visible to the very next verification.
func (r *Refresher) ForceRefresh(ctx context.Context) error {
	return r.Refresh(ctx)
}

// loop fires a refresh on every tick. A tick that arrives while a rebuild is
// in flight is dropped rather than queued, so store reads never overlap.
func (r *Refresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if !r.mu.TryLock() {
				r.logger.Debug("refresh already in flight, skipping tick")
				continue
			}
			if err := r.rebuildLocked(context.Background()); err != nil {
				r.logger.Warn("periodic refresh failed, keeping last good snapshot", "error", err)
			}
			r.mu.Unlock()
		}
	}
}

// rebuildLocked does the actual store read and snapshot swap. Must be called
// with mu held.
func (r *Refresher) rebuildLocked(ctx context.Context) error {
	devices, err := r.store.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled devices: %w", err)
	}

	r.cache.Replace(devices)
	r.logger.Info("credential cache refreshed", "devices", len(devices))
	return nil
}
