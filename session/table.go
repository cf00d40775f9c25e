// File: session/table.go
// Package session — sharded map of live connections, one per account.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"hash/fnv"
	"sync"

	"github.com/momentics/btp-mux/account"
)

// Table is a sharded, thread-safe map from account.ID to its current
// Conn. Replacing an entry is the caller's signal to close the old one;
// Remove only takes effect if the stored value still matches what the
// caller last saw, so a reconnect racing a teardown can't delete the
// newer connection.
type Table struct {
	shards []*shard
	mask   uint32
}

type shard struct {
	mu    sync.RWMutex
	conns map[account.ID]*Conn
}

// NewTable constructs a sharded Table with shardCount shards, rounded up
// to the next power of two.
func NewTable(shardCount int) *Table {
	if shardCount <= 0 {
		shardCount = 16
	}
	n := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{conns: make(map[account.ID]*Conn)}
	}
	return &Table{shards: shards, mask: n - 1}
}

func (t *Table) shardFor(id account.ID) *shard {
	return t.shards[fnv32(string(id))&t.mask]
}

// Put installs conn as the current connection for id and returns
// whatever connection it replaced, if any — the caller must Close the
// replaced connection.
func (t *Table) Put(id account.ID, conn *Conn) (previous *Conn, replaced bool) {
	sh := t.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	previous, replaced = sh.conns[id]
	sh.conns[id] = conn
	return previous, replaced
}

// Get fetches the current connection for id, if any.
func (t *Table) Get(id account.ID) (*Conn, bool) {
	sh := t.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	c, ok := sh.conns[id]
	return c, ok
}

// Remove deletes id's entry, but only if it still holds conn — a stale
// teardown goroutine for an already-replaced connection is a no-op.
func (t *Table) Remove(id account.ID, conn *Conn) {
	sh := t.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if current, ok := sh.conns[id]; ok && current == conn {
		delete(sh.conns, id)
	}
}

// Range applies fn to every live connection. fn must not call back into
// the Table.
func (t *Table) Range(fn func(account.ID, *Conn)) {
	for _, sh := range t.shards {
		sh.mu.RLock()
		for id, c := range sh.conns {
			fn(id, c)
		}
		sh.mu.RUnlock()
	}
}

// Len reports the total number of live connections across all shards,
// exposed for control.MetricsRegistry.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.conns)
		sh.mu.RUnlock()
	}
	return n
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
