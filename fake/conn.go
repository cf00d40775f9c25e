// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations of this module's external collaborators —
// session.WireConn, upstream.OutgoingService, upstream.IncomingService —
// for use in tests that need predictable, controllable behavior without
// a real WebSocket or ledger backend.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/momentics/btp-mux/ilp"
	"github.com/momentics/btp-mux/upstream"
)

// Conn is a fake session.WireConn backed by two in-memory queues: one
// fed by the test (consumed by the Conn under test via ReadMessage), one
// recording everything the Conn under test sends via WriteMessage.
type Conn struct {
	mu         sync.Mutex
	recvBuffer [][]byte
	sendBuffer [][]byte
	recvSignal chan struct{}
	closed     bool
	sendError  error
	recvError  error
	closeError error
}

// ErrClosed is returned by ReadMessage/WriteMessage once Close has been
// called, absent any other configured error.
var ErrClosed = errors.New("fake: connection is closed")

// NewConn constructs an empty fake Conn.
func NewConn() *Conn {
	return &Conn{recvSignal: make(chan struct{}, 1)}
}

// ReadMessage implements session.WireConn. It blocks until a message is
// queued via Feed, an error is configured, or the connection is closed.
func (c *Conn) ReadMessage() (int, []byte, error) {
	for {
		c.mu.Lock()
		if c.closed {
			err := c.closeError
			if err == nil {
				err = ErrClosed
			}
			c.mu.Unlock()
			return 0, nil, err
		}
		if c.recvError != nil {
			err := c.recvError
			c.mu.Unlock()
			return 0, nil, err
		}
		if len(c.recvBuffer) > 0 {
			msg := c.recvBuffer[0]
			c.recvBuffer = c.recvBuffer[1:]
			c.mu.Unlock()
			return 2, msg, nil // 2 == websocket.BinaryMessage
		}
		c.mu.Unlock()
		<-c.recvSignal
	}
}

// WriteMessage implements session.WireConn, appending to the sent log.
func (c *Conn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.sendError != nil {
		return c.sendError
	}
	c.sendBuffer = append(c.sendBuffer, append([]byte(nil), data...))
	return nil
}

// Close implements session.WireConn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	select {
	case c.recvSignal <- struct{}{}:
	default:
	}
	return c.closeError
}

// Feed queues a message for the next ReadMessage call.
func (c *Conn) Feed(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvBuffer = append(c.recvBuffer, append([]byte(nil), data...))
	select {
	case c.recvSignal <- struct{}{}:
	default:
	}
}

// Sent returns every message written via WriteMessage so far.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sendBuffer))
	copy(out, c.sendBuffer)
	return out
}

// SetSendError configures every subsequent WriteMessage call to fail.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendError = err
}

// SetRecvError configures every subsequent ReadMessage call to fail.
func (c *Conn) SetRecvError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvError = err
	select {
	case c.recvSignal <- struct{}{}:
	default:
	}
}

// OutgoingService is a fake upstream.OutgoingService returning a fixed
// Fulfill or error on every call.
type OutgoingService struct {
	Fulfill ilp.Fulfill
	Err     error
}

// SendOutgoingRequest implements upstream.OutgoingService.
func (s *OutgoingService) SendOutgoingRequest(context.Context, upstream.OutgoingRequest) (ilp.Fulfill, error) {
	return s.Fulfill, s.Err
}

// IncomingService is a fake upstream.IncomingService returning a fixed
// Fulfill or error on every call, and recording every request it saw.
type IncomingService struct {
	mu       sync.Mutex
	Fulfill  ilp.Fulfill
	Err      error
	requests []upstream.IncomingRequest
}

// HandleIncomingRequest implements upstream.IncomingService.
func (s *IncomingService) HandleIncomingRequest(_ context.Context, req upstream.IncomingRequest) (ilp.Fulfill, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.Fulfill, s.Err
}

// Requests returns every request HandleIncomingRequest has seen so far.
func (s *IncomingService) Requests() []upstream.IncomingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]upstream.IncomingRequest, len(s.requests))
	copy(out, s.requests)
	return out
}
