// Package binding enforces how many devices may be linked to one identity's
// license and records which device holds each slot.
package binding

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNoActiveLicense    = errors.New("no active license")
	ErrDeviceLimitReached = errors.New("device limit reached")
)

// Tier is a license tier with its device allowance.
type Tier string

const (
	TierCitizen       Tier = "CITIZEN"
	TierPersonalMulti Tier = "PERSONAL_MULTI"
	TierBusiness      Tier = "BUSINESS"
	TierEnterprise    Tier = "ENTERPRISE"
)

// TierMaxDevices is the per-tier device allowance.
var TierMaxDevices = map[Tier]int{
	TierCitizen:       1,
	TierPersonalMulti: 3,
	TierBusiness:      5,
	TierEnterprise:    15,
}

// License is one identity's active tier record.
type License struct {
	ID         string
	Owner      string
	Tier       Tier
	MaxDevices int
	// ExpiresAt zero means the license never expires.
	ExpiresAt time.Time
	Active    bool
}

func (l License) expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && l.ExpiresAt.Before(now)
}

// LicenseResolver is the license/tier boundary: the current active license
// for an identity, or ErrNoActiveLicense.
type LicenseResolver interface {
	ActiveLicense(identity string) (License, error)
}

// NewMemoryLicenseResolver keeps licenses in process. Grant replaces any
// previous license for the owner.
func NewMemoryLicenseResolver() *MemoryLicenseResolver {
	return &MemoryLicenseResolver{licenses: make(map[string]License)}
}

type MemoryLicenseResolver struct {
	mu       sync.RWMutex
	licenses map[string]License
}

func (r *MemoryLicenseResolver) Grant(l License) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.licenses[l.Owner] = l
}

func (r *MemoryLicenseResolver) ActiveLicense(identity string) (License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.licenses[identity]
	if !ok || !l.Active || l.expired(time.Now()) {
		return License{}, ErrNoActiveLicense
	}
	return l, nil
}
