// File: btp/codec.go
// Package btp — the (RequestId, ILP Packet) <-> binary WebSocket message
// mapping.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package btp

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/momentics/btp-mux/ilp"
)

// ErrNonBinaryMessage is returned when a WebSocket message is not binary.
var ErrNonBinaryMessage = errors.New("btp: non-binary websocket message")

// ErrMissingILPEntry is returned when a frame has no "ilp" protocol-data
// entry.
var ErrMissingILPEntry = errors.New("btp: missing ilp protocol-data entry")

// ReportedError carries a decoded BTP Error frame. The multiplexer logs
// and otherwise ignores these: they never resolve a pending slot.
type ReportedError struct {
	RequestID uint32
	Frame     Frame
}

func (e *ReportedError) Error() string {
	return fmt.Sprintf("btp: error frame for request %d", e.RequestID)
}

// DecodeMessage decodes a single WebSocket message into its request id and
// ILP packet. messageType must be the value gorilla/websocket reports from
// Conn.ReadMessage.
func DecodeMessage(messageType int, data []byte) (uint32, ilp.Packet, error) {
	if messageType != websocket.BinaryMessage {
		return 0, nil, ErrNonBinaryMessage
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		return 0, nil, fmt.Errorf("btp: decode frame: %w", err)
	}
	if frame.Kind == FrameError {
		return frame.RequestID, nil, &ReportedError{RequestID: frame.RequestID, Frame: frame}
	}
	pd, ok := frame.Find(ProtocolDataNameILP)
	if !ok {
		return frame.RequestID, nil, ErrMissingILPEntry
	}
	packet, err := ilp.Decode(pd.Payload)
	if err != nil {
		return frame.RequestID, nil, fmt.Errorf("btp: decode ilp payload: %w", err)
	}
	return frame.RequestID, packet, nil
}

// EncodePrepare wraps a Prepare in a BTP Message frame.
func EncodePrepare(requestID uint32, p ilp.Prepare) ([]byte, error) {
	return encode(FrameMessage, requestID, p)
}

// EncodeFulfill wraps a Fulfill in a BTP Response frame.
func EncodeFulfill(requestID uint32, f ilp.Fulfill) ([]byte, error) {
	return encode(FrameResponse, requestID, f)
}

// EncodeReject wraps a Reject in a BTP Response frame.
func EncodeReject(requestID uint32, r ilp.Reject) ([]byte, error) {
	return encode(FrameResponse, requestID, r)
}

func encode(kind FrameKind, requestID uint32, packet ilp.Packet) ([]byte, error) {
	payload, err := ilp.Encode(packet)
	if err != nil {
		return nil, fmt.Errorf("btp: encode ilp payload: %w", err)
	}
	frame := Frame{
		Kind:      kind,
		RequestID: requestID,
		ProtocolData: []ProtocolData{{
			Name:        ProtocolDataNameILP,
			ContentType: ContentTypeApplicationOctetStream,
			Payload:     payload,
		}},
	}
	return EncodeFrame(frame), nil
}
