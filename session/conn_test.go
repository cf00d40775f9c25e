package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/btp"
	"github.com/momentics/btp-mux/ilp"
	"github.com/momentics/btp-mux/session"
)

// scriptedWireConn replays a fixed sequence of inbound messages, then
// reports a read error (as a real socket would once the peer goes away),
// and records every outbound WriteMessage call.
type scriptedWireConn struct {
	mu      sync.Mutex
	inbound [][]byte
	sent    [][]byte
	closed  bool
	closeCh chan struct{}
}

func newScriptedWireConn(inbound [][]byte) *scriptedWireConn {
	return &scriptedWireConn{inbound: inbound, closeCh: make(chan struct{})}
}

// ReadMessage replays queued messages, then blocks until Close is called
// (mirroring a real socket, whose read only unblocks once the connection
// actually goes away).
func (s *scriptedWireConn) ReadMessage() (int, []byte, error) {
	s.mu.Lock()
	if len(s.inbound) > 0 {
		msg := s.inbound[0]
		s.inbound = s.inbound[1:]
		s.mu.Unlock()
		return websocket.BinaryMessage, msg, nil
	}
	s.mu.Unlock()
	<-s.closeCh
	return 0, nil, errScriptExhausted
}

var errScriptExhausted = &eofError{}

func (s *scriptedWireConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	return nil
}

func (s *scriptedWireConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.closeCh)
	}
	return nil
}

func TestConnDispatchesPrepareToHandler(t *testing.T) {
	prepareFrame, err := btp.EncodePrepare(5, ilp.Prepare{Destination: "g.bob"})
	if err != nil {
		t.Fatalf("EncodePrepare: %v", err)
	}
	wire := newScriptedWireConn([][]byte{prepareFrame})

	received := make(chan uint32, 1)
	conn := session.New(account.Static("alice"), wire,
		func(_ account.Account, requestID uint32, _ ilp.Prepare) { received <- requestID },
		func(uint32, *ilp.Fulfill, *ilp.Reject) {},
	)
	conn.Start()
	defer conn.Close()

	select {
	case id := <-received:
		if id != 5 {
			t.Fatalf("request id = %d, want 5", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for onPrepare callback")
	}
}

func TestConnDispatchesReplyToHandler(t *testing.T) {
	fulfillFrame, err := btp.EncodeFulfill(9, ilp.Fulfill{})
	if err != nil {
		t.Fatalf("EncodeFulfill: %v", err)
	}
	wire := newScriptedWireConn([][]byte{fulfillFrame})

	received := make(chan uint32, 1)
	conn := session.New(account.Static("alice"), wire,
		func(account.Account, uint32, ilp.Prepare) {},
		func(requestID uint32, fulfill *ilp.Fulfill, reject *ilp.Reject) {
			if fulfill == nil || reject != nil {
				t.Errorf("expected a fulfill outcome, got fulfill=%v reject=%v", fulfill, reject)
			}
			received <- requestID
		},
	)
	conn.Start()
	defer conn.Close()

	select {
	case id := <-received:
		if id != 9 {
			t.Fatalf("request id = %d, want 9", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for onReply callback")
	}
}

func TestConnSendWritesThroughWire(t *testing.T) {
	wire := newScriptedWireConn(nil)
	conn := session.New(account.Static("alice"), wire,
		func(account.Account, uint32, ilp.Prepare) {},
		func(uint32, *ilp.Fulfill, *ilp.Reject) {},
	)
	conn.Start()
	defer conn.Close()

	payload, _ := btp.EncodeFulfill(1, ilp.Fulfill{})
	if err := conn.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		wire.mu.Lock()
		n := len(wire.sent)
		wire.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for write")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestConnSendAfterCloseReturnsErrClosed(t *testing.T) {
	wire := newScriptedWireConn(nil)
	conn := session.New(account.Static("alice"), wire,
		func(account.Account, uint32, ilp.Prepare) {},
		func(uint32, *ilp.Fulfill, *ilp.Reject) {},
	)
	conn.Close()
	if err := conn.Send([]byte("x")); err != session.ErrClosed {
		t.Fatalf("Send after Close: err = %v, want ErrClosed", err)
	}
}
