package binding

import "time"

// Binding links one device fingerprint to one license slot.
type Binding struct {
	LicenseID   string
	Fingerprint string
	BoundAt     time.Time
}

// Store persists bindings. Link must be atomic with respect to the count
// check: two concurrent Link calls for the last free slot must admit exactly
// one. Re-linking an already-bound fingerprint succeeds without consuming
// another slot.
type Store interface {
	// Link binds fingerprint to the license if fewer than max bindings exist
	// or the fingerprint is already bound. Returns ErrDeviceLimitReached
	// when the license is full.
	Link(licenseID, fingerprint string, max int, now time.Time) error
	// IsLinked reports whether the fingerprint holds a slot on the license.
	IsLinked(licenseID, fingerprint string) (bool, error)
	// Unlink releases exactly the named binding. Unknown bindings are a no-op.
	Unlink(licenseID, fingerprint string) error
	// Count returns the number of bindings on the license.
	Count(licenseID string) (int, error)
}
