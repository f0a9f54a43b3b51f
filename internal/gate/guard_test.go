// ABOUTME: Tests for the actuation guard and the admin-only refresh gate
// ABOUTME: Uses fake actuators and refreshers; no hardware involved

package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTracy/gate-opener/internal/auth"
)

type fakeActuator struct {
	pulses    int
	durations []time.Duration
	err       error
}

func (f *fakeActuator) Pulse(ctx context.Context, d time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.pulses++
	f.durations = append(f.durations, d)
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestGuard_TriggerPulsesOnce(t *testing.T) {
	act := &fakeActuator{}
	g := NewGuard(act, &fakeRefresher{}, nil, "front gate", 100*time.Millisecond)

	err := g.Trigger(context.Background(), &auth.Principal{DeviceName: "doorbell"})
	require.NoError(t, err)
	assert.Equal(t, 1, act.pulses)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, act.durations)
}

func TestGuard_TriggerHardwareFailureSurfaces(t *testing.T) {
	act := &fakeActuator{err: errors.New("relay stuck")}
	g := NewGuard(act, &fakeRefresher{}, nil, "front gate", 100*time.Millisecond)

	err := g.Trigger(context.Background(), &auth.Principal{DeviceName: "doorbell"})
	assert.Error(t, err)
	assert.Equal(t, 0, act.pulses, "no retry after a failed pulse")
}

func TestGuard_RequestRefresh_NonAdminForbidden(t *testing.T) {
	r := &fakeRefresher{}
	g := NewGuard(&fakeActuator{}, r, nil, "front gate", 100*time.Millisecond)

	err := g.RequestRefresh(context.Background(), &auth.Principal{DeviceName: "doorbell", IsAdmin: false})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, r.calls)
}

func TestGuard_RequestRefresh_Admin(t *testing.T) {
	r := &fakeRefresher{}
	g := NewGuard(&fakeActuator{}, r, nil, "front gate", 100*time.Millisecond)

	err := g.RequestRefresh(context.Background(), &auth.Principal{DeviceName: "opener", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestGuard_RequestRefresh_StoreErrorPropagates(t *testing.T) {
	r := &fakeRefresher{err: errors.New("store unavailable")}
	g := NewGuard(&fakeActuator{}, r, nil, "front gate", 100*time.Millisecond)

	err := g.RequestRefresh(context.Background(), &auth.Principal{DeviceName: "opener", IsAdmin: true})
	assert.Error(t, err)
}

func TestLoggingActuator_RespectsContext(t *testing.T) {
	a := NewLoggingActuator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Pulse(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoggingActuator_Pulse(t *testing.T) {
	a := NewLoggingActuator()
	assert.NoError(t, a.Pulse(context.Background(), time.Millisecond))
}
