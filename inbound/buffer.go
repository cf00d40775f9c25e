// File: inbound/buffer.go
// Package inbound implements the pre-binding inbound Prepare buffer: an
// unbounded FIFO that accumulates inbound Prepare events arriving before a
// handler has been attached, and is drained exactly once when one is.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package inbound

import (
	"errors"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/ilp"
)

// Pending is one buffered inbound Prepare awaiting handler dispatch.
type Pending struct {
	From      account.Account
	RequestID uint32
	Prepare   ilp.Prepare
}

// Buffer is a single-producer-many, single-consumer-one FIFO. Producers
// (one goroutine per session) call Push concurrently; Drain may be called
// at most once and detaches the buffer from further Push calls.
type Buffer struct {
	mu     sync.Mutex
	items  *queue.Queue
	taken  bool
}

// NewBuffer constructs an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{items: queue.New()}
}

// ErrAlreadyDrained is returned by Drain if it has already been called.
var ErrAlreadyDrained = errors.New("inbound: buffer already drained")

// Push enqueues a pending Prepare. It is a no-op once the buffer has been
// drained — by construction, binding installs the handler before any
// further inbound Prepare can reach the buffer at all (see mux.Service),
// but Push stays defensive so a late caller can never block or panic.
func (b *Buffer) Push(p Pending) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.taken {
		return
	}
	b.items.Add(p)
}

// Drain detaches the buffer and returns everything queued so far, in FIFO
// order. It may be called at most once; subsequent calls return
// ErrAlreadyDrained.
func (b *Buffer) Drain() ([]Pending, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.taken {
		return nil, ErrAlreadyDrained
	}
	b.taken = true
	out := make([]Pending, 0, b.items.Length())
	for b.items.Length() > 0 {
		out = append(out, b.items.Remove().(Pending))
	}
	return out, nil
}

// Len reports the number of buffered entries, exposed for
// control.MetricsRegistry. It is a snapshot and may be stale immediately.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Length()
}
