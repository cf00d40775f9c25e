// File: correlation/table.go
// Package correlation implements the pending-reply table: a map from
// outgoing request id to a one-shot slot that is resolved when the
// matching Fulfill/Reject arrives, cancelled on service shutdown, or
// removed when its waiter gives up (session closed, context done).
//
// The table is shared across all sessions: a Fulfill or Reject is matched
// purely by request id regardless of which session it arrived on.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package correlation

import (
	"math/rand/v2"
	"sync"

	"github.com/momentics/btp-mux/ilp"
)

// Outcome is the value delivered through a Slot: exactly one of Fulfill
// or Reject is meaningful, selected by IsFulfill.
type Outcome struct {
	IsFulfill bool
	Fulfill   ilp.Fulfill
	Reject    ilp.Reject
}

// Slot is a one-shot delivery channel for a pending reply. Resolve sends
// exactly once; Cancel closes the channel without a value, which the
// waiter must translate to an internal-error Reject.
type Slot struct {
	ch chan Outcome
}

func newSlot() *Slot {
	return &Slot{ch: make(chan Outcome, 1)}
}

// Resolve delivers the outcome and closes the slot. Safe to call at most
// once; the Table guarantees this by removing the slot from its map
// before handing it to the caller.
func (s *Slot) Resolve(o Outcome) {
	s.ch <- o
	close(s.ch)
}

// Cancel closes the slot without delivering a value.
func (s *Slot) Cancel() {
	close(s.ch)
}

// Wait blocks until the slot is resolved or cancelled. ok is false when
// the slot was cancelled (the service shut down) — the caller must
// translate that into a T00_INTERNAL_ERROR Reject.
func (s *Slot) Wait() (Outcome, bool) {
	o, ok := <-s.ch
	return o, ok
}

// Chan exposes the slot's delivery channel directly, for a caller that
// needs to race it against another signal (e.g. context cancellation)
// instead of blocking in Wait on a dedicated goroutine.
func (s *Slot) Chan() <-chan Outcome {
	return s.ch
}

// Table is the shared pending-outgoing-request map.
type Table struct {
	mu      sync.Mutex
	pending map[uint32]*Slot
	maxTries int
}

// maxAllocationRetries bounds collision-retry allocation: with 32-bit ids
// and tens-of-thousands in flight the birthday bound makes a second
// collision in a row astronomically unlikely, so a small bound is enough
// to avoid spinning forever under a pathological caller-supplied id.
const maxAllocationRetries = 8

// NewTable constructs an empty correlation table.
func NewTable() *Table {
	return &Table{pending: make(map[uint32]*Slot), maxTries: maxAllocationRetries}
}

// Allocate picks a fresh random 32-bit request id, registers a new Slot
// for it, and returns both. Collisions with an existing pending id are
// retried up to a bound before giving up.
func (t *Table) Allocate() (uint32, *Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < t.maxTries; i++ {
		id := rand.Uint32()
		if _, exists := t.pending[id]; exists {
			continue
		}
		slot := newSlot()
		t.pending[id] = slot
		return id, slot, true
	}
	return 0, nil, false
}

// Take atomically removes and returns the slot for id, if any. This is
// also how Fulfill/Reject delivery enforces "at most one reply": a second
// reply for the same id finds nothing to take.
func (t *Table) Take(id uint32) (*Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return slot, ok
}

// Remove deletes id from the table without returning its slot, used when
// a caller abandons a request it already allocated (e.g. the session died
// between Allocate and the frame being queued).
func (t *Table) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

// DrainAll removes and returns every currently pending slot, used on
// global shutdown to cancel every in-flight request at once.
func (t *Table) DrainAll() []*Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	slots := make([]*Slot, 0, len(t.pending))
	for id, slot := range t.pending {
		slots = append(slots, slot)
		delete(t.pending, id)
	}
	return slots
}

// Len reports the number of pending outgoing requests, exposed through
// the multiplexer's "mux.pending" debug probe.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
