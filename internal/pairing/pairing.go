// Package pairing authorizes signaling connections against the device-pair
// records owned by the account backend.
//
// The relay is a read-only consumer: exactly one lookup per connection
// attempt, no caching, no writes.
package pairing

import (
	"context"
	"errors"
)

// Status is the lifecycle state of a device pair.
type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusRevoked Status = "revoked"
)

// Record is a device-pair row as stored by the account backend.
type Record struct {
	ID          string
	Status      Status
	OwnerUserID string
}

// ErrNotFound is returned by Store implementations when no record exists for
// the given pair id.
var ErrNotFound = errors.New("pairing record not found")

// Store looks up device-pair records. Implementations must be safe for
// concurrent use; every connection attempt performs one Lookup.
type Store interface {
	Lookup(ctx context.Context, pairID string) (Record, error)
}
