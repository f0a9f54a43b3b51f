// ABOUTME: Tests for Principal context propagation
// ABOUTME: Covers WithPrincipal/FromContext/MustFromContext behavior

package auth

import (
	"context"
	"testing"
)

func TestWithPrincipal_FromContext(t *testing.T) {
	p := &Principal{DeviceName: "doorbell", IsAdmin: true}
	ctx := WithPrincipal(context.Background(), p)

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
	if got.DeviceName != "doorbell" {
		t.Errorf("DeviceName = %q, want %q", got.DeviceName, "doorbell")
	}
	if !got.IsAdmin {
		t.Error("IsAdmin should be true")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext should panic on missing principal")
		}
	}()
	MustFromContext(context.Background())
}

func TestMustFromContext_Present(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{DeviceName: "doorbell"})
	got := MustFromContext(ctx)
	if got.DeviceName != "doorbell" {
		t.Errorf("DeviceName = %q, want %q", got.DeviceName, "doorbell")
	}
}
