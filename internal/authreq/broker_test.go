package authreq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pff-protocol/presence-core/internal/binding"
	"github.com/pff-protocol/presence-core/internal/config"
	"github.com/pff-protocol/presence-core/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnchor = "+2348000000001"

func testBroker(t *testing.T, maxDevices int) *Broker {
	t.Helper()
	resolver := binding.NewMemoryLicenseResolver()
	resolver.Grant(binding.License{
		ID:         "lic-1",
		Owner:      testAnchor,
		Tier:       binding.TierCitizen,
		MaxDevices: maxDevices,
		Active:     true,
	})
	ledger := binding.NewLedger(binding.NewMemoryStore(), resolver)
	cfg := config.BrokerConfig{
		RequestTTL:    2 * time.Minute,
		SweepInterval: time.Second,
		PollInterval:  10 * time.Millisecond,
	}
	return NewBroker(NewMemoryStore(), NewMemoryNotifier(), ledger, cfg)
}

func laptopInfo() device.Info {
	return device.Info{Type: device.TypeLaptop, Name: "work laptop", OS: "linux", Arch: "amd64"}
}

func TestBrokerCreateAndApprove(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.NotEmpty(t, req.ID)

	token := MintToken(testAnchor, "phone-fingerprint")
	out, err := b.Resolve(ctx, req.ID, token, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	assert.False(t, out.BindingSkipped)

	got, err := b.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "phone-fingerprint", got.ApproverDeviceID)
	assert.NotEmpty(t, got.ApproverToken)
}

func TestBrokerSingleTerminalWrite(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	approve := MintToken(testAnchor, "phone-a")
	deny := MintToken(testAnchor, "phone-b")

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = b.Resolve(ctx, req.ID, approve, DecisionApprove)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = b.Resolve(ctx, req.ID, deny, DecisionDeny)
	}()
	wg.Wait()

	// Exactly one decision lands; the loser gets the not-pending rejection.
	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrNotPending)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := b.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.Status == StatusApproved || got.Status == StatusDenied)
}

func TestBrokerWatchSeesApproval(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	statuses := make(chan Status, 1)
	cancel, err := b.Watch(ctx, req.ID, func(s Status) { statuses <- s })
	require.NoError(t, err)
	defer cancel()

	_, err = b.Resolve(ctx, req.ID, MintToken(testAnchor, "phone-a"), DecisionApprove)
	require.NoError(t, err)

	select {
	case s := <-statuses:
		assert.Equal(t, StatusApproved, s)
	case <-time.After(2 * time.Second):
		t.Fatal("watch never observed the approval")
	}
}

func TestBrokerWatchPollingFallback(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	// Mutate the store directly, bypassing the notifier; only the polling
	// fallback can observe this.
	require.NoError(t, b.store.ResolveIfPending(ctx, req.ID, StatusDenied, "phone-a", "", time.Now()))

	statuses := make(chan Status, 1)
	cancel, err := b.Watch(ctx, req.ID, func(s Status) { statuses <- s })
	require.NoError(t, err)
	defer cancel()

	select {
	case s := <-statuses:
		assert.Equal(t, StatusDenied, s)
	case <-time.After(2 * time.Second):
		t.Fatal("polling fallback never observed the denial")
	}
}

func TestBrokerExpiry(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	// Age the request past the TTL, then sweep.
	b.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	n, err := b.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := b.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	// A resolve against the expired request is rejected exactly like any
	// other non-PENDING resolve.
	_, err = b.Resolve(ctx, req.ID, MintToken(testAnchor, "phone-a"), DecisionApprove)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestBrokerApprovalNotBlockedByFullLicense(t *testing.T) {
	b := testBroker(t, 1)
	ctx := context.Background()

	// Fill the single slot before the approval.
	require.NoError(t, b.ledger.LinkDevice(testAnchor, "existing-device"))

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	out, err := b.Resolve(ctx, req.ID, MintToken(testAnchor, "new-phone"), DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	assert.True(t, out.BindingSkipped)
	assert.NotEmpty(t, out.BindingReason)
}

func TestBrokerRejectsInvalidToken(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	tampered := MintToken(testAnchor, "phone-a")
	tampered.DeviceFingerprint = "other-device"

	_, err = b.Resolve(ctx, req.ID, tampered, DecisionApprove)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The request is untouched.
	got, err := b.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestBrokerRejectsCrossIdentityToken(t *testing.T) {
	b := testBroker(t, 3)
	ctx := context.Background()

	req, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	// A valid token for some other identity must not resolve this request,
	// and must never bind the foreign device to anyone's license.
	foreign := MintToken("+2348000000099", "attacker-phone")
	_, err = b.Resolve(ctx, req.ID, foreign, DecisionApprove)
	assert.ErrorIs(t, err, ErrAnchorMismatch)

	got, err := b.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	linked, err := b.ledger.IsDeviceLinked(testAnchor, "attacker-phone")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestBrokerRateLimit(t *testing.T) {
	b := testBroker(t, 3)
	b.cfg.CreateRatePerMinute = 1
	ctx := context.Background()

	_, err := b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	require.NoError(t, err)

	_, err = b.CreateRequest(ctx, testAnchor, laptopInfo(), nil)
	assert.ErrorIs(t, err, ErrRateLimited)

	// Another identity has its own budget.
	_, err = b.CreateRequest(ctx, "+2348000000002", laptopInfo(), nil)
	assert.NoError(t, err)
}

func TestBrokerRequiresAnchor(t *testing.T) {
	b := testBroker(t, 3)

	_, err := b.CreateRequest(context.Background(), "", laptopInfo(), nil)
	assert.Error(t, err)
}
