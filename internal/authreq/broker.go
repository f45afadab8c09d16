package authreq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pff-protocol/presence-core/internal/binding"
	"github.com/pff-protocol/presence-core/internal/config"
	"github.com/pff-protocol/presence-core/internal/device"
	"github.com/pff-protocol/presence-core/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResolveOutcome reports what a resolve actually did.
type ResolveOutcome struct {
	Status Status
	// BindingSkipped is set when the approval landed but the approver's
	// device could not be bound (license full or absent). The login itself
	// is never blocked by binding-table limits.
	BindingSkipped bool
	BindingReason  string
}

// Broker owns the authorization request lifecycle end to end: creation,
// the single terminal write, the subscription, and the expiry sweep.
type Broker struct {
	store    Store
	notifier Notifier
	ledger   *binding.Ledger
	cfg      config.BrokerConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	now func() time.Time
}

func NewBroker(store Store, notifier Notifier, ledger *binding.Ledger, cfg config.BrokerConfig) *Broker {
	return &Broker{
		store:    store,
		notifier: notifier,
		ledger:   ledger,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (b *Broker) limiter(anchor string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.limiters[anchor]
	if !ok {
		perMinute := b.cfg.CreateRatePerMinute
		l = rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
		b.limiters[anchor] = l
	}
	return l
}

// CreateRequest opens a PENDING request for the identity anchor. The
// returned id is what the requesting device renders as a scannable code.
func (b *Broker) CreateRequest(ctx context.Context, anchor string, dev device.Info, geo *Geo) (*Request, error) {
	if anchor == "" {
		return nil, fmt.Errorf("identity anchor required")
	}
	if b.cfg.CreateRatePerMinute > 0 && !b.limiter(anchor).Allow() {
		return nil, ErrRateLimited
	}

	req := &Request{
		ID:             uuid.NewString(),
		IdentityAnchor: anchor,
		Device:         dev,
		Geo:            geo,
		Status:         StatusPending,
		CreatedAt:      b.now(),
	}
	if err := b.store.Insert(ctx, req); err != nil {
		return nil, err
	}
	logger.Info("authorization request created",
		zap.String("request", req.ID),
		zap.String("device_type", string(dev.Type)))
	return req, nil
}

// Get re-reads the current row.
func (b *Broker) Get(ctx context.Context, id string) (*Request, error) {
	return b.store.Get(ctx, id)
}

// Resolve records the terminal decision. The token must be one minted for an
// unlocked session of the request's own identity anchor on the resolving
// device; a resolve against a non-PENDING
// request returns ErrNotPending and changes nothing. On APPROVE the
// approver's device is also bound to the identity's license, but a full or
// missing license only flags the outcome, it never rolls back the approval.
func (b *Broker) Resolve(ctx context.Context, id string, token Token, decision Decision) (ResolveOutcome, error) {
	if err := token.Verify(); err != nil {
		return ResolveOutcome{}, err
	}

	// The anchor on the row never changes, so checking it before the
	// conditional write is race-free.
	req, err := b.store.Get(ctx, id)
	if err != nil {
		return ResolveOutcome{}, err
	}
	if req.IdentityAnchor != token.IdentityAnchor {
		return ResolveOutcome{}, ErrAnchorMismatch
	}

	status := StatusDenied
	if decision == DecisionApprove {
		status = StatusApproved
	}

	if err := b.store.ResolveIfPending(ctx, id, status, token.DeviceFingerprint, token.Encode(), b.now()); err != nil {
		return ResolveOutcome{}, err
	}

	out := ResolveOutcome{Status: status}
	if status == StatusApproved {
		switch err := b.ledger.LinkDevice(req.IdentityAnchor, token.DeviceFingerprint); err {
		case nil:
		default:
			out.BindingSkipped = true
			out.BindingReason = err.Error()
			logger.Warn("approval resolved but device binding skipped",
				zap.String("request", id),
				zap.Error(err))
		}
	}

	b.notifier.Publish(id, status)
	logger.Info("authorization request resolved",
		zap.String("request", id),
		zap.String("status", string(status)))
	return out, nil
}

// Watch observes one request until it reaches a terminal status, then calls
// onChange exactly once. It listens on the realtime channel and re-reads the
// row on every event; a polling ticker covers missed events. The returned
// func tears the subscription down and must be called on component teardown.
func (b *Broker) Watch(ctx context.Context, id string, onChange func(Status)) (func(), error) {
	if _, err := b.store.Get(ctx, id); err != nil {
		return nil, err
	}

	events, unsubscribe := b.notifier.Subscribe(id)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}

	fired := false
	fire := func(s Status) {
		if !fired {
			fired = true
			onChange(s)
		}
	}

	pollEvery := b.cfg.PollInterval
	if pollEvery <= 0 {
		pollEvery = 2 * time.Second
	}

	go func() {
		ticker := time.NewTicker(pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			case <-events:
			case <-ticker.C:
			}
			// Event payloads are advisory; the row is the truth.
			req, err := b.store.Get(ctx, id)
			if err != nil {
				continue
			}
			if req.Status.Terminal() {
				fire(req.Status)
				cancel()
				return
			}
		}
	}()

	return cancel, nil
}

// SweepExpired moves every PENDING request older than the TTL to EXPIRED and
// publishes the change, so no requester hangs on a dead code.
func (b *Broker) SweepExpired(ctx context.Context) (int, error) {
	cutoff := b.now().Add(-b.cfg.RequestTTL)
	ids, err := b.store.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		b.notifier.Publish(id, StatusExpired)
	}
	if len(ids) > 0 {
		logger.Info("expired stale authorization requests", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}
