package authreq

import (
	"context"
	"time"
)

// Store persists authorization requests. ResolveIfPending is the protocol's
// core correctness point: the status write is conditional on the row still
// being PENDING, so concurrent resolvers cannot both win.
type Store interface {
	Insert(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	// ResolveIfPending records the terminal status, approver, and token iff
	// the request is still PENDING. Returns ErrNotPending otherwise and
	// ErrRequestNotFound for unknown ids.
	ResolveIfPending(ctx context.Context, id string, status Status, approverDeviceID, approverToken string, respondedAt time.Time) error
	// ExpireOlderThan moves every PENDING request created before the cutoff
	// to EXPIRED and returns their ids.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
