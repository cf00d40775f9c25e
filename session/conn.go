// File: session/conn.go
// Package session implements one BTP connection per peer account: two
// long-lived goroutines (inbound reader, outbound forwarder) coordinated
// over a single WebSocket, plus the sharded map of live connections.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/api"
	"github.com/momentics/btp-mux/btp"
	"github.com/momentics/btp-mux/ilp"
)

// Conn satisfies api.Cancelable: a live connection is itself a
// long-running cancelable operation, closed either by its own recv/send
// loops hitting an error or by an external caller tearing it down.
var _ api.Cancelable = (*Conn)(nil)

// WireConn is the minimal duplex message interface a Conn needs from its
// transport. *gorilla/websocket.Conn satisfies it directly.
type WireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// PrepareHandler is invoked for every inbound Prepare. Implementations
// must not block the calling goroutine for long — they are invoked
// synchronously from recvLoop.
type PrepareHandler func(from account.Account, requestID uint32, p ilp.Prepare)

// ReplyHandler is invoked for every inbound Fulfill or Reject.
type ReplyHandler func(requestID uint32, fulfill *ilp.Fulfill, reject *ilp.Reject)

// ErrClosed is returned by Send once the connection has shut down.
var ErrClosed = api.ErrTransportClosed

// Conn is one peer's WebSocket connection, speaking BTP framing.
type Conn struct {
	account account.Account
	ws      WireConn

	onPrepare PrepareHandler
	onReply   ReplyHandler

	outbox chan []byte

	closeOnce sync.Once
	done      chan struct{}

	status         int32 // api.SessionStatus, accessed atomically
	framesSeen     int32
	bytesReceived  int64
	bytesSent      int64
	framesReceived int64
	framesSent     int64
}

// New constructs a Conn bound to acc over ws. onPrepare and onReply are
// invoked from the read loop for inbound Prepare and Fulfill/Reject
// packets respectively; they must be non-nil. BTP Error frames are logged
// and reach neither.
func New(acc account.Account, ws WireConn, onPrepare PrepareHandler, onReply ReplyHandler) *Conn {
	return &Conn{
		account:   acc,
		ws:        ws,
		onPrepare: onPrepare,
		onReply:   onReply,
		outbox:    make(chan []byte, 64),
		done:      make(chan struct{}),
		status:    int32(api.SessionConnecting),
	}
}

// Status reports the connection's current lifecycle state.
func (c *Conn) Status() api.SessionStatus {
	return api.SessionStatus(atomic.LoadInt32(&c.status))
}

// Account returns the peer account this connection speaks for.
func (c *Conn) Account() account.Account { return c.account }

// Start launches the read and write loops. Must be called at most once.
func (c *Conn) Start() {
	atomic.StoreInt32(&c.status, int32(api.SessionActive))
	go c.recvLoop()
	go c.sendLoop()
}

// Send enqueues a pre-encoded BTP message for delivery. It returns
// ErrClosed if the connection has already shut down.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close tears the connection down: idempotent, safe to call from any
// goroutine or concurrently with Start.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.status, int32(api.SessionClosing))
		close(c.done)
		err = c.ws.Close()
		atomic.StoreInt32(&c.status, int32(api.SessionClosed))
	})
	return err
}

// Done returns a channel closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Cancel implements api.Cancelable by closing the connection.
func (c *Conn) Cancel() error { return c.Close() }

// Err implements api.Cancelable. A Conn carries no distinct
// cancellation reason beyond "closed"; callers that need the underlying
// transport error should inspect their own ReadMessage/WriteMessage
// wrapper instead.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return ErrClosed
	default:
		return nil
	}
}

// Stats is a snapshot of per-connection traffic counters.
type Stats struct {
	BytesReceived  int64
	BytesSent      int64
	FramesReceived int64
	FramesSent     int64
}

// Stats reports a snapshot of traffic counters for metrics reporting.
func (c *Conn) Stats() Stats {
	return Stats{
		BytesReceived:  atomic.LoadInt64(&c.bytesReceived),
		BytesSent:      atomic.LoadInt64(&c.bytesSent),
		FramesReceived: atomic.LoadInt64(&c.framesReceived),
		FramesSent:     atomic.LoadInt64(&c.framesSent),
	}
}

func (c *Conn) recvLoop() {
	defer c.Close()
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		atomic.AddInt64(&c.framesReceived, 1)
		atomic.AddInt64(&c.bytesReceived, int64(len(data)))

		requestID, packet, err := btp.DecodeMessage(messageType, data)
		if reported, ok := err.(*btp.ReportedError); ok {
			atomic.StoreInt32(&c.framesSeen, 1)
			log.Printf("session: account %s: peer reported error frame for request %d", c.account.ID(), reported.RequestID)
			continue
		}
		if err != nil {
			seen := atomic.AddInt32(&c.framesSeen, 1)
			if seen <= 1 {
				log.Printf("session: account %s: first frame failed to decode: %v", c.account.ID(), err)
			} else {
				log.Printf("session: account %s: frame decode error: %v", c.account.ID(), err)
			}
			continue
		}
		atomic.StoreInt32(&c.framesSeen, 1)

		switch v := packet.(type) {
		case ilp.Prepare:
			c.onPrepare(c.account, requestID, v)
		case ilp.Fulfill:
			c.onReply(requestID, &v, nil)
		case ilp.Reject:
			c.onReply(requestID, nil, &v)
		default:
			log.Printf("session: account %s: unexpected packet type %T for request %d", c.account.ID(), packet, requestID)
		}
	}
}

func (c *Conn) sendLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbox:
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Printf("session: account %s: write error: %v", c.account.ID(), err)
				c.Close()
				return
			}
			atomic.AddInt64(&c.framesSent, 1)
			atomic.AddInt64(&c.bytesSent, int64(len(data)))
		}
	}
}
