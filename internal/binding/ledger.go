package binding

import (
	"fmt"
	"time"

	"github.com/pff-protocol/presence-core/internal/logger"
	"go.uber.org/zap"
)

// Ledger is the device-binding service: it resolves the identity's license
// and delegates the slot accounting to the store.
type Ledger struct {
	store    Store
	licenses LicenseResolver
	now      func() time.Time
}

func NewLedger(store Store, licenses LicenseResolver) *Ledger {
	return &Ledger{store: store, licenses: licenses, now: time.Now}
}

// LinkDevice binds the fingerprint to the identity's active license.
// Fails with ErrNoActiveLicense or ErrDeviceLimitReached; re-linking an
// already-bound device always succeeds without consuming a slot.
func (l *Ledger) LinkDevice(identity, fingerprint string) error {
	lic, err := l.licenses.ActiveLicense(identity)
	if err != nil {
		return err
	}
	if err := l.store.Link(lic.ID, fingerprint, lic.MaxDevices, l.now()); err != nil {
		return fmt.Errorf("link device to license %s: %w", lic.ID, err)
	}
	logger.Info("device linked",
		zap.String("license", lic.ID),
		zap.String("tier", string(lic.Tier)))
	return nil
}

// IsDeviceLinked reports whether the fingerprint holds a slot on the
// identity's active license. No license means not linked.
func (l *Ledger) IsDeviceLinked(identity, fingerprint string) (bool, error) {
	lic, err := l.licenses.ActiveLicense(identity)
	if err == ErrNoActiveLicense {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.store.IsLinked(lic.ID, fingerprint)
}

// RevokeDevice releases exactly one binding. The license row is untouched.
func (l *Ledger) RevokeDevice(identity, fingerprint string) error {
	lic, err := l.licenses.ActiveLicense(identity)
	if err != nil {
		return err
	}
	if err := l.store.Unlink(lic.ID, fingerprint); err != nil {
		return err
	}
	logger.Info("device binding revoked", zap.String("license", lic.ID))
	return nil
}
