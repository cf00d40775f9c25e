// File: ilp/packet.go
// Package ilp models the three Interledger Protocol packet kinds the
// multiplexer correlates and routes: Prepare, Fulfill, Reject.
//
// The real ILPv4 wire format is ASN.1 OER; encode/decode here is a
// minimal, self-consistent binary stand-in good enough to exercise and
// test the multiplexer's correlation and routing logic. A production
// deployment would swap this package for a real OER codec without
// touching anything above it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ilp

import (
	"time"
)

// Kind identifies which of the three packet types a frame carries. The
// numeric values mirror the real ILPv4 type octets for familiarity, even
// though the surrounding encoding is this module's own.
type Kind byte

const (
	KindPrepare Kind = 12
	KindFulfill Kind = 13
	KindReject  Kind = 14
)

func (k Kind) String() string {
	switch k {
	case KindPrepare:
		return "Prepare"
	case KindFulfill:
		return "Fulfill"
	case KindReject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// Packet is implemented by Prepare, Fulfill, and Reject.
type Packet interface {
	Kind() Kind
}

// Prepare is an outgoing or incoming request packet.
type Prepare struct {
	Destination         string
	Amount              uint64
	ExpiresAt           time.Time
	ExecutionCondition  [32]byte
	Data                []byte
}

// Kind implements Packet.
func (Prepare) Kind() Kind { return KindPrepare }

// Fulfill is a successful reply to a Prepare.
type Fulfill struct {
	FulfillmentData [32]byte
	Data            []byte
}

// Kind implements Packet.
func (Fulfill) Kind() Kind { return KindFulfill }

// ErrorCode is a three-character ILP error code, e.g. "F99" or "T00".
type ErrorCode string

// Error codes referenced directly by the multiplexer's failure semantics.
const (
	CodeT00InternalError ErrorCode = "T00"
	CodeF99Applicative   ErrorCode = "F99"
)

// Reject is a failed reply to a Prepare.
type Reject struct {
	Code        ErrorCode
	Message     []byte
	TriggeredBy []byte
	Data        []byte
}

// Kind implements Packet.
func (Reject) Kind() Kind { return KindReject }

// Error implements the error interface so a Reject can be returned
// directly from OutgoingService/IncomingService implementations.
func (r *Reject) Error() string {
	if len(r.Message) == 0 {
		return "ilp reject: " + string(r.Code)
	}
	return "ilp reject: " + string(r.Code) + ": " + string(r.Message)
}

// RejectBuilder builds a Reject field by field, e.g.
// RejectBuilder{Code: CodeT00InternalError, ...}.Build().
type RejectBuilder struct {
	Code        ErrorCode
	Message     []byte
	TriggeredBy []byte
	Data        []byte
}

// Build constructs the Reject.
func (b RejectBuilder) Build() *Reject {
	return &Reject{
		Code:        b.Code,
		Message:     b.Message,
		TriggeredBy: b.TriggeredBy,
		Data:        b.Data,
	}
}

// InternalError is the canonical T00_INTERNAL_ERROR reject used whenever a
// session dies or a reply slot is cancelled without a value: empty
// message, triggered_by, and data.
func InternalError() *Reject {
	return RejectBuilder{Code: CodeT00InternalError}.Build()
}
