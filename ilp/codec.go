// File: ilp/codec.go
// Package ilp — binary encode/decode for Prepare, Fulfill, and Reject.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ilp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrTruncated is returned when a buffer ends before a declared field.
var ErrTruncated = errors.New("ilp: truncated packet")

// ErrUnknownKind is returned when the leading kind byte is not recognized.
var ErrUnknownKind = errors.New("ilp: unknown packet kind")

// Encode serializes any Packet into its binary wire form.
func Encode(p Packet) ([]byte, error) {
	switch v := p.(type) {
	case Prepare:
		return encodePrepare(v), nil
	case *Prepare:
		return encodePrepare(*v), nil
	case Fulfill:
		return encodeFulfill(v), nil
	case *Fulfill:
		return encodeFulfill(*v), nil
	case Reject:
		return encodeReject(v), nil
	case *Reject:
		return encodeReject(*v), nil
	default:
		return nil, fmt.Errorf("ilp: encode: unsupported packet type %T", p)
	}
}

// Decode parses a binary ILP packet and returns the concrete Packet value
// (Prepare, Fulfill, or Reject).
func Decode(data []byte) (Packet, error) {
	if len(data) < 1 {
		return nil, ErrTruncated
	}
	switch Kind(data[0]) {
	case KindPrepare:
		return decodePrepare(data[1:])
	case KindFulfill:
		return decodeFulfill(data[1:])
	case KindReject:
		return decodeReject(data[1:])
	default:
		return nil, ErrUnknownKind
	}
}

func putBytes(dst []byte, b []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(b)))
	dst = append(dst, length[:]...)
	return append(dst, b...)
}

func takeBytes(src []byte) (b []byte, rest []byte, err error) {
	if len(src) < 4 {
		return nil, nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(src[:4])
	src = src[4:]
	if uint64(len(src)) < uint64(n) {
		return nil, nil, ErrTruncated
	}
	return src[:n], src[n:], nil
}

func putShortString(dst []byte, s string) []byte {
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s)))
	dst = append(dst, length[:]...)
	return append(dst, s...)
}

func takeShortString(src []byte) (s string, rest []byte, err error) {
	if len(src) < 2 {
		return "", nil, ErrTruncated
	}
	n := binary.BigEndian.Uint16(src[:2])
	src = src[2:]
	if len(src) < int(n) {
		return "", nil, ErrTruncated
	}
	return string(src[:n]), src[n:], nil
}

func encodePrepare(p Prepare) []byte {
	buf := make([]byte, 0, 64+len(p.Data)+len(p.Destination))
	buf = append(buf, byte(KindPrepare))
	buf = putShortString(buf, p.Destination)
	var amount [8]byte
	binary.BigEndian.PutUint64(amount[:], p.Amount)
	buf = append(buf, amount[:]...)
	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], uint64(p.ExpiresAt.UnixNano()))
	buf = append(buf, expiry[:]...)
	buf = append(buf, p.ExecutionCondition[:]...)
	buf = putBytes(buf, p.Data)
	return buf
}

func decodePrepare(src []byte) (Prepare, error) {
	var p Prepare
	dest, rest, err := takeShortString(src)
	if err != nil {
		return p, err
	}
	p.Destination = dest
	if len(rest) < 8 {
		return p, ErrTruncated
	}
	p.Amount = binary.BigEndian.Uint64(rest[:8])
	rest = rest[8:]
	if len(rest) < 8 {
		return p, ErrTruncated
	}
	p.ExpiresAt = time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8]))).UTC()
	rest = rest[8:]
	if len(rest) < 32 {
		return p, ErrTruncated
	}
	copy(p.ExecutionCondition[:], rest[:32])
	rest = rest[32:]
	data, _, err := takeBytes(rest)
	if err != nil {
		return p, err
	}
	p.Data = data
	return p, nil
}

func encodeFulfill(f Fulfill) []byte {
	buf := make([]byte, 0, 33+len(f.Data))
	buf = append(buf, byte(KindFulfill))
	buf = append(buf, f.FulfillmentData[:]...)
	buf = putBytes(buf, f.Data)
	return buf
}

func decodeFulfill(src []byte) (Fulfill, error) {
	var f Fulfill
	if len(src) < 32 {
		return f, ErrTruncated
	}
	copy(f.FulfillmentData[:], src[:32])
	data, _, err := takeBytes(src[32:])
	if err != nil {
		return f, err
	}
	f.Data = data
	return f, nil
}

func encodeReject(r Reject) []byte {
	buf := make([]byte, 0, 16+len(r.Message)+len(r.TriggeredBy)+len(r.Data))
	buf = append(buf, byte(KindReject))
	buf = putShortString(buf, string(r.Code))
	buf = putBytes(buf, r.Message)
	buf = putBytes(buf, r.TriggeredBy)
	buf = putBytes(buf, r.Data)
	return buf
}

func decodeReject(src []byte) (Reject, error) {
	var r Reject
	code, rest, err := takeShortString(src)
	if err != nil {
		return r, err
	}
	r.Code = ErrorCode(code)
	msg, rest, err := takeBytes(rest)
	if err != nil {
		return r, err
	}
	r.Message = msg
	triggeredBy, rest, err := takeBytes(rest)
	if err != nil {
		return r, err
	}
	r.TriggeredBy = triggeredBy
	data, _, err := takeBytes(rest)
	if err != nil {
		return r, err
	}
	r.Data = data
	return r, nil
}
