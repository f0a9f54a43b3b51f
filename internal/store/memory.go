// ABOUTME: In-memory DeviceStore implementation for testing and dev mode
// ABOUTME: Allows tests and local runs without SQLite or Airtable

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory DeviceStore implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*Device // keyed by invite code
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]*Device),
	}
}

// Ensure MemoryStore implements DeviceStore.
var _ DeviceStore = (*MemoryStore)(nil)

// ListEnabled returns all enabled devices.
func (m *MemoryStore) ListEnabled(ctx context.Context) ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var devices []*Device
	for _, d := range m.devices {
		if d.Enabled {
			copied := *d
			devices = append(devices, &copied)
		}
	}
	return devices, nil
}

// Insert stores a new device record.
func (m *MemoryStore) Insert(ctx context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[d.InviteCode]; exists {
		return ErrDuplicateInvite
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	copied := *d
	m.devices[d.InviteCode] = &copied
	return nil
}

// FindByInvite retrieves a device by its invite code.
func (m *MemoryStore) FindByInvite(ctx context.Context, inviteCode string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[inviteCode]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

// UpdateEnabled sets the enabled flag on a device.
func (m *MemoryStore) UpdateEnabled(ctx context.Context, inviteCode string, enabled bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[inviteCode]
	if !ok {
		return 0, nil
	}
	d.Enabled = enabled
	return 1, nil
}

// Delete removes a device by invite code.
func (m *MemoryStore) Delete(ctx context.Context, inviteCode string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[inviteCode]; !ok {
		return 0, nil
	}
	delete(m.devices, inviteCode)
	return 1, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
