// ABOUTME: Device record and DeviceStore interface for gate-opener persistence
// ABOUTME: Adapters: SQLite (self-hosted), Airtable (hosted table), memory (tests/dev)

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested device does not exist
var ErrNotFound = errors.New("device not found")

// ErrDuplicateInvite is returned when inserting a device whose invite code
// collides with an existing record
var ErrDuplicateInvite = errors.New("invite code already exists")

// Device represents a registered client device. A device is created disabled
// at registration time and only participates in authentication after an
// administrator enables it.
type Device struct {
	ID         string // storage row ID, opaque to callers
	Name       string // caller-supplied name, not unique
	AuthSecret string // random secret bound into the device's token
	InviteCode string // opaque code the admin uses to approve or reject
	Enabled    bool
	IsAdmin    bool
	CreatedAt  time.Time
}

// DeviceStore defines the interface for device persistence.
//
// UpdateEnabled and Delete report the number of rows affected so that
// concurrent admin actions on the same invite code resolve to exactly one
// winner: the loser observes zero rows and treats the record as gone.
type DeviceStore interface {
	// ListEnabled returns all devices with Enabled set. Used to rebuild the
	// in-memory credential cache.
	ListEnabled(ctx context.Context) ([]*Device, error)

	// Insert stores a new device record. The ID is assigned by the adapter
	// if empty.
	Insert(ctx context.Context, d *Device) error

	// FindByInvite returns the device with the given invite code, or
	// ErrNotFound.
	FindByInvite(ctx context.Context, inviteCode string) (*Device, error)

	// UpdateEnabled sets the enabled flag on the device with the given
	// invite code, returning the number of rows changed.
	UpdateEnabled(ctx context.Context, inviteCode string, enabled bool) (int64, error)

	// Delete removes the device with the given invite code, returning the
	// number of rows removed.
	Delete(ctx context.Context, inviteCode string) (int64, error)

	// Close releases any resources held by the store
	Close() error
}
