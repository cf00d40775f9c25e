// File: account/account.go
// Package account defines the opaque peer identity abstraction shared by
// every other package in this module.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package account

// ID is an opaque, hashable, comparable peer identifier. Callers are free
// to derive it from a database primary key, a public key fingerprint, or
// any other stable string.
type ID string

// String implements fmt.Stringer so IDs are safe to log directly.
func (id ID) String() string { return string(id) }

// Account is the minimal contract the multiplexer needs from a peer
// record: something hashable it can key sessions and logs by.
type Account interface {
	ID() ID
}

// Static is a trivial Account backed by a fixed ID, useful for callers
// that have no richer account model and for tests.
type Static ID

// ID implements Account.
func (s Static) ID() ID { return ID(s) }
