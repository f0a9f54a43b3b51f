// ABOUTME: Actuator port for the physical output and a logging stand-in
// ABOUTME: Hardware drivers live outside this module and implement Pulse

package gate

import (
	"context"
	"log/slog"
	"time"
)

// Actuator drives the physical output. Pulse asserts the output, holds it
// for the given duration, and deasserts it. Implementations are provided by
// the deployment (relay driver, GPIO bridge); this module only depends on
// the contract.
type Actuator interface {
	Pulse(ctx context.Context, duration time.Duration) error
}

// LoggingActuator is a stand-in for dev mode and the memory store driver.
// It logs the pulse instead of touching hardware.
type LoggingActuator struct {
	logger *slog.Logger
}

// NewLoggingActuator creates an actuator that only logs.
func NewLoggingActuator() *LoggingActuator {
	return &LoggingActuator{logger: slog.Default().With("component", "actuator")}
}

// Pulse logs the would-be actuation and sleeps for the hold duration so dev
// behavior matches hardware timing.
func (a *LoggingActuator) Pulse(ctx context.Context, duration time.Duration) error {
	a.logger.Info("pulse", "duration", duration)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
		return nil
	}
}
