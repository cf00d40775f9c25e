// File: upstream/service.go
// Package upstream defines the two collaborator interfaces the
// multiplexer delegates to: one for Prepares it cannot route over any
// live session, one for Prepares arriving from a peer once a handler has
// been bound.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package upstream

import (
	"context"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/ilp"
)

// OutgoingRequest is a Prepare the multiplexer wants to send to an
// account with no live session.
type OutgoingRequest struct {
	To      account.Account
	Prepare ilp.Prepare
}

// IncomingRequest is a Prepare that arrived from a connected peer, once a
// handler has been bound.
type IncomingRequest struct {
	From    account.Account
	Prepare ilp.Prepare
}

// OutgoingService routes a Prepare to an account that has no open BTP
// connection — e.g. a local ledger account, or a peer reached by a
// different transport entirely. A rejection should be returned as a
// *ilp.Reject error value. The multiplexer hands the Fulfill and error
// back to its caller unchanged; other error types are not converted.
type OutgoingService interface {
	SendOutgoingRequest(ctx context.Context, req OutgoingRequest) (ilp.Fulfill, error)
}

// IncomingService is the application handler bound via mux.Service.Bind.
// It is invoked for every inbound Prepare, buffered or live, exactly
// once each.
type IncomingService interface {
	HandleIncomingRequest(ctx context.Context, req IncomingRequest) (ilp.Fulfill, error)
}
