package room

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeMember string

func (m fakeMember) SessionID() string { return string(m) }

func TestAddTwoMembersThenFull(t *testing.T) {
	r := NewRegistry()

	if err := r.Add("pair-1", fakeMember("a")); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := r.Add("pair-1", fakeMember("b")); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if err := r.Add("pair-1", fakeMember("c")); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull on third add, got %v", err)
	}
	if got := r.Size("pair-1"); got != 2 {
		t.Fatalf("expected room size 2, got %d", got)
	}
}

func TestPeerLookup(t *testing.T) {
	r := NewRegistry()
	a, b := fakeMember("a"), fakeMember("b")

	if err := r.Add("pair-1", a); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if peer := r.Peer("pair-1", a); peer != nil {
		t.Fatalf("expected no peer while alone, got %v", peer)
	}

	if err := r.Add("pair-1", b); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if peer := r.Peer("pair-1", a); peer == nil || peer.SessionID() != "b" {
		t.Fatalf("expected peer b, got %v", peer)
	}
	if peer := r.Peer("pair-1", b); peer == nil || peer.SessionID() != "a" {
		t.Fatalf("expected peer a, got %v", peer)
	}
}

func TestRemoveDropsEmptyRoom(t *testing.T) {
	r := NewRegistry()
	a, b := fakeMember("a"), fakeMember("b")

	if err := r.Add("pair-1", a); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := r.Add("pair-1", b); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	r.Remove("pair-1", a)
	if got := r.Size("pair-1"); got != 1 {
		t.Fatalf("expected room size 1 after removal, got %d", got)
	}

	r.Remove("pair-1", b)
	if got := r.Len(); got != 0 {
		t.Fatalf("expected no rooms after last member left, got %d", got)
	}

	// The slot freed by the departures must be reusable.
	if err := r.Add("pair-1", fakeMember("c")); err != nil {
		t.Fatalf("rejoin after empty failed: %v", err)
	}
}

func TestRemoveUnknownMemberIsNoOp(t *testing.T) {
	r := NewRegistry()
	if err := r.Add("pair-1", fakeMember("a")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	r.Remove("pair-1", fakeMember("ghost"))
	r.Remove("pair-2", fakeMember("a"))
	if got := r.Size("pair-1"); got != 1 {
		t.Fatalf("expected room untouched, got size %d", got)
	}
}

func TestConcurrentJoinsAdmitExactlyTwo(t *testing.T) {
	r := NewRegistry()

	const joiners = 32
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Add("pair-1", fakeMember(fmt.Sprintf("m%d", i))); err == nil {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := admitted.Load(); got != 2 {
		t.Fatalf("expected exactly 2 admitted, got %d", got)
	}
	if got := r.Size("pair-1"); got != 2 {
		t.Fatalf("expected room size 2, got %d", got)
	}
}
