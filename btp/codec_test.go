package btp_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/btp-mux/btp"
	"github.com/momentics/btp-mux/ilp"
)

func TestCodecIdempotence_Prepare(t *testing.T) {
	want := ilp.Prepare{
		Destination: "g.example.alice",
		Amount:      1000,
		ExpiresAt:   time.Unix(1700000000, 0).UTC(),
		Data:        []byte("hello"),
	}
	want.ExecutionCondition[0] = 0xAB

	encoded, err := btp.EncodePrepare(42, want)
	if err != nil {
		t.Fatalf("EncodePrepare: %v", err)
	}

	id, packet, err := btp.DecodeMessage(websocket.BinaryMessage, encoded)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if id != 42 {
		t.Fatalf("request id = %d, want 42", id)
	}
	got, ok := packet.(ilp.Prepare)
	if !ok {
		t.Fatalf("decoded packet type = %T, want ilp.Prepare", packet)
	}
	if got.Destination != want.Destination || got.Amount != want.Amount ||
		!got.ExpiresAt.Equal(want.ExpiresAt) || !bytes.Equal(got.Data, want.Data) ||
		got.ExecutionCondition != want.ExecutionCondition {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestCodecIdempotence_FulfillAndReject(t *testing.T) {
	fulfill := ilp.Fulfill{Data: []byte("ok")}
	fulfill.FulfillmentData[1] = 0x42

	encoded, err := btp.EncodeFulfill(7, fulfill)
	if err != nil {
		t.Fatalf("EncodeFulfill: %v", err)
	}
	id, packet, err := btp.DecodeMessage(websocket.BinaryMessage, encoded)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if id != 7 {
		t.Fatalf("request id = %d, want 7", id)
	}
	gotFulfill, ok := packet.(ilp.Fulfill)
	if !ok || gotFulfill.FulfillmentData != fulfill.FulfillmentData || !bytes.Equal(gotFulfill.Data, fulfill.Data) {
		t.Fatalf("fulfill round trip mismatch: got %+v", packet)
	}

	reject := ilp.Reject{Code: ilp.CodeF99Applicative, Message: []byte("nope"), Data: []byte{1, 2, 3}}
	encoded, err = btp.EncodeReject(7, reject)
	if err != nil {
		t.Fatalf("EncodeReject: %v", err)
	}
	id, packet, err = btp.DecodeMessage(websocket.BinaryMessage, encoded)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	gotReject, ok := packet.(ilp.Reject)
	if !ok || gotReject.Code != reject.Code || !bytes.Equal(gotReject.Message, reject.Message) || !bytes.Equal(gotReject.Data, reject.Data) {
		t.Fatalf("reject round trip mismatch: got %+v", packet)
	}
}

func TestDecodeMessage_RejectsNonBinary(t *testing.T) {
	_, _, err := btp.DecodeMessage(websocket.TextMessage, []byte("hello"))
	if err != btp.ErrNonBinaryMessage {
		t.Fatalf("err = %v, want ErrNonBinaryMessage", err)
	}
}

func TestDecodeMessage_ErrorFrameReported(t *testing.T) {
	frame := btp.Frame{Kind: btp.FrameError, RequestID: 9}
	encoded := btp.EncodeFrame(frame)
	_, _, err := btp.DecodeMessage(websocket.BinaryMessage, encoded)
	var reported *btp.ReportedError
	if err == nil {
		t.Fatal("expected ReportedError")
	}
	if re, ok := err.(*btp.ReportedError); !ok {
		t.Fatalf("err = %T, want *btp.ReportedError", err)
	} else {
		reported = re
	}
	if reported.RequestID != 9 {
		t.Fatalf("reported request id = %d, want 9", reported.RequestID)
	}
}
