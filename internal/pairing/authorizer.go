package pairing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPairNotFound: no record for the pair id, or the pair is not active.
	ErrPairNotFound = errors.New("pair not found or inactive")

	// ErrOwnershipMismatch: the pair exists but belongs to a different user.
	ErrOwnershipMismatch = errors.New("pair not owned by user")

	// ErrStoreUnavailable: the lookup itself failed (timeout, connectivity,
	// backend error). Server-error class, distinct from the two authorization
	// failures above so clients can tell "try again" from "not authorized".
	ErrStoreUnavailable = errors.New("pairing store unavailable")
)

// Authorizer confirms that a claimed pairing is active and owned by the
// claimed user before a session may join its room.
type Authorizer struct {
	store   Store
	timeout time.Duration
}

const defaultLookupTimeout = 2 * time.Second

func NewAuthorizer(store Store, timeout time.Duration) *Authorizer {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Authorizer{store: store, timeout: timeout}
}

// Authorize performs the single store lookup for a connection attempt. The
// lookup is bounded by the configured timeout so a slow store rejects the
// attempt instead of stalling the accept path.
func (a *Authorizer) Authorize(ctx context.Context, pairID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rec, err := a.store.Lookup(ctx, pairID)
	if errors.Is(err, ErrNotFound) {
		return ErrPairNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if rec.Status != StatusActive {
		return ErrPairNotFound
	}
	if rec.OwnerUserID != userID {
		return ErrOwnershipMismatch
	}
	return nil
}
