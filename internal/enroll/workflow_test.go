// ABOUTME: Tests for the enrollment workflow
// ABOUTME: Covers PSK gating, lifecycle transitions, idempotence, and notification side effects

package enroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTracy/gate-opener/internal/auth"
	"github.com/ChrisTracy/gate-opener/internal/notify"
	"github.com/ChrisTracy/gate-opener/internal/store"
)

const (
	testRegPSK = "registration-psk"
	testAppPSK = "approval-psk"
)

// testHarness wires a workflow against real auth components and a memory store.
type testHarness struct {
	store     *store.MemoryStore
	cache     *auth.Cache
	refresher *auth.Refresher
	verifier  *auth.Verifier
	workflow  *Workflow
}

func newHarness(t *testing.T, notifier notify.Notifier) *testHarness {
	t.Helper()

	codec, err := auth.NewTokenCodec([]byte("test-signing-secret-32-bytes!!!!"))
	require.NoError(t, err)

	st := store.NewMemoryStore()
	cache := auth.NewCache()
	refresher := auth.NewRefresher(st, cache, time.Hour)

	w := NewWorkflow(st, codec, refresher, notifier, testRegPSK, testAppPSK, 365*24*time.Hour)

	return &testHarness{
		store:     st,
		cache:     cache,
		refresher: refresher,
		verifier:  auth.NewVerifier(codec, cache),
		workflow:  w,
	}
}

type recordingNotifier struct {
	subjects []string
	vars     []map[string]string
}

func (r *recordingNotifier) Send(ctx context.Context, subject string, vars map[string]string) error {
	r.subjects = append(r.subjects, subject)
	r.vars = append(r.vars, vars)
	return nil
}

func TestRegister_WrongPSK(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.workflow.Register(context.Background(), "doorbell", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRegister_EmptyDeviceName(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.workflow.Register(context.Background(), "", testRegPSK)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestRegister_CreatesPendingDevice(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Len(t, reg.InviteCode, 30)

	device, err := h.store.FindByInvite(ctx, reg.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, "doorbell", device.Name)
	assert.False(t, device.Enabled)
	assert.Len(t, device.AuthSecret, 16)

	// Fresh token must not verify while the device is pending
	require.NoError(t, h.refresher.Refresh(ctx))
	_, err = h.verifier.Verify(reg.Token)
	assert.ErrorIs(t, err, auth.ErrNotEnabled)
}

func TestRegister_NotifiesAdmin(t *testing.T) {
	n := &recordingNotifier{}
	h := newHarness(t, n)

	reg, err := h.workflow.Register(context.Background(), "doorbell", testRegPSK)
	require.NoError(t, err)

	require.Len(t, n.subjects, 1)
	assert.Equal(t, "doorbell", n.vars[0]["device"])
	assert.Equal(t, reg.InviteCode, n.vars[0]["invite"])
}

func TestRegister_NoNotifierConfigured(t *testing.T) {
	h := newHarness(t, nil)

	// Must not panic and must still succeed
	_, err := h.workflow.Register(context.Background(), "doorbell", testRegPSK)
	assert.NoError(t, err)
}

func TestEnable_WrongPSK(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	err = h.workflow.Enable(ctx, reg.InviteCode, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	// Device must still be pending
	device, err := h.store.FindByInvite(ctx, reg.InviteCode)
	require.NoError(t, err)
	assert.False(t, device.Enabled)
}

func TestEnable_UnknownInvite(t *testing.T) {
	h := newHarness(t, nil)

	err := h.workflow.Enable(context.Background(), "no-such-invite", testAppPSK)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnable_MakesTokenVerifiableImmediately(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	require.NoError(t, h.workflow.Enable(ctx, reg.InviteCode, testAppPSK))

	// No periodic tick needed: Enable forced the refresh
	p, err := h.verifier.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "doorbell", p.DeviceName)
	assert.False(t, p.IsAdmin)
}

func TestEnable_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	require.NoError(t, h.workflow.Enable(ctx, reg.InviteCode, testAppPSK))
	require.NoError(t, h.workflow.Enable(ctx, reg.InviteCode, testAppPSK))

	// Exactly one cache entry for the device
	assert.Equal(t, 1, h.cache.Len())
}

func TestReject_RemovesPendingDevice(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	require.NoError(t, h.workflow.Reject(ctx, reg.InviteCode, testAppPSK))

	_, err = h.store.FindByInvite(ctx, reg.InviteCode)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReject_EnabledDeviceStopsVerifying(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)
	require.NoError(t, h.workflow.Enable(ctx, reg.InviteCode, testAppPSK))

	_, err = h.verifier.Verify(reg.Token)
	require.NoError(t, err)

	require.NoError(t, h.workflow.Reject(ctx, reg.InviteCode, testAppPSK))

	// Immediately unauthorized, no periodic refresh needed
	_, err = h.verifier.Verify(reg.Token)
	assert.ErrorIs(t, err, auth.ErrNotEnabled)
}

func TestReject_WrongPSK(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	err = h.workflow.Reject(ctx, reg.InviteCode, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestReject_UnknownInvite(t *testing.T) {
	h := newHarness(t, nil)

	err := h.workflow.Reject(context.Background(), "no-such-invite", testAppPSK)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Full lifecycle: register, failed enable with the wrong PSK, real enable,
// then verification succeeds.
func TestScenario_RegisterApproveVerify(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reg, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	// Wrong approval PSK: unauthorized, device still pending
	err = h.workflow.Enable(ctx, reg.InviteCode, "wrongPSK")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = h.verifier.Verify(reg.Token)
	require.Error(t, err, "token must not verify while pending")

	// Correct approval PSK
	require.NoError(t, h.workflow.Enable(ctx, reg.InviteCode, testAppPSK))

	p, err := h.verifier.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "doorbell", p.DeviceName)
	assert.False(t, p.IsAdmin)
}

// Two registrations under the same device name stay fully independent:
// distinct invites, distinct tokens, and enabling one never enables the
// other.
func TestScenario_DuplicateNamesStayIndependent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)
	second, err := h.workflow.Register(ctx, "doorbell", testRegPSK)
	require.NoError(t, err)

	assert.NotEqual(t, first.InviteCode, second.InviteCode)
	assert.NotEqual(t, first.Token, second.Token)

	require.NoError(t, h.workflow.Enable(ctx, first.InviteCode, testAppPSK))

	_, err = h.verifier.Verify(first.Token)
	assert.NoError(t, err)

	_, err = h.verifier.Verify(second.Token)
	assert.ErrorIs(t, err, auth.ErrNotEnabled, "second registration must stay pending")
}

func TestRandomString(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, err := randomString(inviteCodeLength)
		require.NoError(t, err)
		require.Len(t, s, inviteCodeLength)
		assert.False(t, seen[s], "generated a duplicate invite code")
		seen[s] = true

		for _, r := range s {
			assert.Contains(t, alphanumerics, string(r))
		}
	}
}

func TestPSKMatches(t *testing.T) {
	assert.True(t, pskMatches("secret", "secret"))
	assert.False(t, pskMatches("wrong", "secret"))
	assert.False(t, pskMatches("", "secret"))
	assert.False(t, pskMatches("", ""), "empty configured PSK must fail closed")
	assert.False(t, pskMatches("anything", ""))
}
