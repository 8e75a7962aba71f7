// Package room tracks two-party signaling rooms keyed by pair id.
package room

import (
	"errors"
	"sync"
)

// ErrRoomFull is returned by Add when a room already holds two members.
var ErrRoomFull = errors.New("room is full")

// Member is a participant that can be looked up and removed by session id.
type Member interface {
	SessionID() string
}

// Registry maps pair ids to rooms of at most two members. Membership checks
// and inserts are atomic: two racing joins on a full room can never both
// succeed.
type Registry struct {
	mu    sync.Mutex
	rooms map[string][]Member
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string][]Member)}
}

// Add places m in the room for pairID, creating the room if needed.
func (r *Registry) Add(pairID string, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[pairID]
	if len(members) >= 2 {
		return ErrRoomFull
	}
	r.rooms[pairID] = append(members, m)
	return nil
}

// Remove deletes m from the room for pairID. The room itself is dropped once
// its last member leaves, so a later reconnect starts from an empty room.
// Removing a member that is not present is a no-op.
func (r *Registry) Remove(pairID string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[pairID]
	for i, other := range members {
		if other.SessionID() == m.SessionID() {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(r.rooms, pairID)
		return
	}
	r.rooms[pairID] = members
}

// Peer returns the other member of m's room, or nil if m is alone or the
// room does not exist.
func (r *Registry) Peer(pairID string, m Member) Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.rooms[pairID] {
		if other.SessionID() != m.SessionID() {
			return other
		}
	}
	return nil
}

// Len reports the current number of rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Size reports the number of members in the room for pairID.
func (r *Registry) Size(pairID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[pairID])
}
