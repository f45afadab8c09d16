// Package authreq implements the cross-device authorization handshake:
// a requesting device opens a PENDING request, an already-verified device
// resolves it, and the requester observes the outcome over a subscription.
package authreq

import (
	"errors"
	"time"

	"github.com/pff-protocol/presence-core/internal/device"
)

var (
	ErrRequestNotFound = errors.New("authorization request not found")
	// ErrNotPending rejects any resolve attempt against a request that has
	// already reached a terminal status. At most one decision is ever
	// recorded per request.
	ErrNotPending  = errors.New("authorization request is not pending")
	ErrRateLimited = errors.New("too many authorization requests")
	// ErrAnchorMismatch rejects a resolve whose token was minted for a
	// different identity than the one the request belongs to. A verified
	// session speaks only for its own identity anchor.
	ErrAnchorMismatch = errors.New("approver token identity does not match request")
)

// Status is the request lifecycle state. Pending is the only non-terminal
// state; a terminal row is never reused.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
	StatusExpired  Status = "EXPIRED"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool { return s != StatusPending }

// Decision is what a resolving device may do to a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDeny    Decision = "DENY"
)

// Geo is optional location metadata shown to the approving human.
type Geo struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Request is the durable row shared between the two devices. Created by the
// requester, mutated exactly once by the resolver or the expiry sweep.
type Request struct {
	ID             string
	IdentityAnchor string
	Device         device.Info
	Geo            *Geo
	Status         Status
	CreatedAt      time.Time
	RespondedAt    time.Time
	// ApproverDeviceID and ApproverToken record which verified device
	// resolved the request.
	ApproverDeviceID string
	ApproverToken    string
}
