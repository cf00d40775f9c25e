// File: btp/frame.go
// Package btp implements the BTP (Bilateral Transfer Protocol) framing
// layer: Message/Response/Error frames, each carrying a request id and a
// sequence of named protocol-data entries. Encoding and decoding are pure
// and side-effect free.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package btp

import (
	"encoding/binary"
	"errors"
)

// FrameKind identifies the outer BTP frame type. Values mirror the real
// BTP wire protocol's type octets.
type FrameKind byte

const (
	FrameResponse FrameKind = 1
	FrameError    FrameKind = 2
	FrameMessage  FrameKind = 6
)

// ContentType identifies the encoding of a ProtocolData payload.
type ContentType byte

const (
	ContentTypeApplicationOctetStream ContentType = 0
	ContentTypeTextPlainUTF8          ContentType = 1
	ContentTypeApplicationJSON        ContentType = 2
)

// ProtocolDataNameILP is the well-known protocol-data entry name carrying
// the ILP packet payload.
const ProtocolDataNameILP = "ilp"

// ProtocolData is a single named, typed entry carried inside a Frame.
type ProtocolData struct {
	Name        string
	ContentType ContentType
	Payload     []byte
}

// Frame is a decoded BTP frame.
type Frame struct {
	Kind         FrameKind
	RequestID    uint32
	ProtocolData []ProtocolData
}

// Find returns the first protocol-data entry with the given name.
func (f Frame) Find(name string) (ProtocolData, bool) {
	for _, pd := range f.ProtocolData {
		if pd.Name == name {
			return pd, true
		}
	}
	return ProtocolData{}, false
}

// ErrTruncated is returned when the buffer ends before a declared field.
var ErrTruncated = errors.New("btp: truncated frame")

// ErrUnknownFrameKind is returned for an unrecognized leading kind byte.
var ErrUnknownFrameKind = errors.New("btp: unknown frame kind")

// EncodeFrame serializes a Frame to its binary wire form.
func EncodeFrame(f Frame) []byte {
	buf := make([]byte, 0, 9+16*len(f.ProtocolData))
	buf = append(buf, byte(f.Kind))
	var reqID [4]byte
	binary.BigEndian.PutUint32(reqID[:], f.RequestID)
	buf = append(buf, reqID[:]...)
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(f.ProtocolData)))
	buf = append(buf, count[:]...)
	for _, pd := range f.ProtocolData {
		var nameLen [2]byte
		binary.BigEndian.PutUint16(nameLen[:], uint16(len(pd.Name)))
		buf = append(buf, nameLen[:]...)
		buf = append(buf, pd.Name...)
		buf = append(buf, byte(pd.ContentType))
		var payloadLen [4]byte
		binary.BigEndian.PutUint32(payloadLen[:], uint32(len(pd.Payload)))
		buf = append(buf, payloadLen[:]...)
		buf = append(buf, pd.Payload...)
	}
	return buf
}

// DecodeFrame parses a binary BTP frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) < 7 {
		return f, ErrTruncated
	}
	switch FrameKind(data[0]) {
	case FrameResponse, FrameError, FrameMessage:
		f.Kind = FrameKind(data[0])
	default:
		return f, ErrUnknownFrameKind
	}
	f.RequestID = binary.BigEndian.Uint32(data[1:5])
	count := binary.BigEndian.Uint16(data[5:7])
	rest := data[7:]
	f.ProtocolData = make([]ProtocolData, 0, count)
	for i := uint16(0); i < count; i++ {
		if len(rest) < 2 {
			return f, ErrTruncated
		}
		nameLen := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		if len(rest) < int(nameLen)+1+4 {
			return f, ErrTruncated
		}
		name := string(rest[:nameLen])
		rest = rest[nameLen:]
		contentType := ContentType(rest[0])
		rest = rest[1:]
		payloadLen := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(payloadLen) {
			return f, ErrTruncated
		}
		payload := rest[:payloadLen]
		rest = rest[payloadLen:]
		f.ProtocolData = append(f.ProtocolData, ProtocolData{
			Name:        name,
			ContentType: contentType,
			Payload:     payload,
		})
	}
	return f, nil
}
