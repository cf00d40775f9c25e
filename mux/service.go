// File: mux/service.go
// Package mux ties the BTP framing, correlation table, inbound buffer,
// and per-account session table together into the multiplexer: the
// single entry point callers use to send a Prepare, attach connections,
// and bind the application handler.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package mux

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/api"
	"github.com/momentics/btp-mux/btp"
	"github.com/momentics/btp-mux/control"
	"github.com/momentics/btp-mux/correlation"
	"github.com/momentics/btp-mux/ilp"
	"github.com/momentics/btp-mux/inbound"
	"github.com/momentics/btp-mux/session"
	"github.com/momentics/btp-mux/upstream"
)

// ErrAlreadyBound is returned by Bind if a handler has already been
// attached.
var ErrAlreadyBound = fmt.Errorf("mux: handler already bound")

// ErrNoRoute is returned by SendRequest when the destination account has
// no live session and no fallback upstream.OutgoingService was
// configured.
var ErrNoRoute = fmt.Errorf("mux: no session and no fallback route for account")

// Service is the BTP multiplexer. The zero value is not usable; build
// one with New.
type Service struct {
	sessions *session.Table
	pending  *correlation.Table
	buffer   *inbound.Buffer
	fallback upstream.OutgoingService

	metrics *control.MetricsRegistry
	debug   *control.DebugProbes

	bindMu  sync.Mutex
	bound   bool
	handler upstream.IncomingService
}

// New constructs a Service. fallback may be nil, in which case
// SendRequest to an account with no live session fails with ErrNoRoute.
func New(fallback upstream.OutgoingService) *Service {
	s := &Service{
		sessions: session.NewTable(16),
		pending:  correlation.NewTable(),
		buffer:   inbound.NewBuffer(),
		fallback: fallback,
		metrics:  control.NewMetricsRegistry(),
		debug:    control.NewDebugProbes(),
	}
	s.debug.RegisterProbe("mux.sessions", func() any { return s.sessions.Len() })
	s.debug.RegisterProbe("mux.pending", func() any { return s.pending.Len() })
	s.debug.RegisterProbe("mux.buffered", func() any { return s.buffer.Len() })
	return s
}

// Metrics exposes the service's metrics registry for external collection.
func (s *Service) Metrics() *control.MetricsRegistry { return s.metrics }

// Debug exposes the service's debug probe registry for introspection.
func (s *Service) Debug() *control.DebugProbes { return s.debug }

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int { return s.sessions.Len() }

// TrafficTotals sums traffic counters across every live session, for
// facade-level metrics reporting.
func (s *Service) TrafficTotals() (bytesIn, bytesOut uint64) {
	s.sessions.Range(func(_ account.ID, c *session.Conn) {
		stats := c.Stats()
		bytesIn += uint64(stats.BytesReceived)
		bytesOut += uint64(stats.BytesSent)
	})
	return bytesIn, bytesOut
}

// AddConnection attaches a new WebSocket connection for acc, replacing
// and closing any existing connection for the same account, and starts
// its read/write loops.
func (s *Service) AddConnection(acc account.Account, ws session.WireConn) *session.Conn {
	conn := session.New(acc, ws,
		func(from account.Account, requestID uint32, p ilp.Prepare) { s.handlePrepare(from, requestID, p) },
		func(requestID uint32, fulfill *ilp.Fulfill, reject *ilp.Reject) { s.handleReply(requestID, fulfill, reject) },
	)
	previous, replaced := s.sessions.Put(acc.ID(), conn)
	if replaced {
		log.Printf("mux: account %s: replacing existing connection", acc.ID())
		previous.Close()
	}
	conn.Start()
	go s.awaitTeardown(acc.ID(), conn)
	s.metrics.Set("sessions.active", s.sessions.Len())
	return conn
}

func (s *Service) awaitTeardown(id account.ID, conn *session.Conn) {
	<-conn.Done()
	s.sessions.Remove(id, conn)
	s.metrics.Set("sessions.active", s.sessions.Len())
}

// SendRequest routes a Prepare to acc: over its live session if one
// exists, or through the configured fallback upstream.OutgoingService
// otherwise. Session failures and ctx cancellation are both reported as
// a T00_INTERNAL_ERROR *ilp.Reject.
func (s *Service) SendRequest(ctx context.Context, acc account.Account, p ilp.Prepare) (ilp.Fulfill, error) {
	conn, ok := s.sessions.Get(acc.ID())
	if !ok {
		if s.fallback == nil {
			return ilp.Fulfill{}, ErrNoRoute
		}
		return s.fallback.SendOutgoingRequest(ctx, upstream.OutgoingRequest{To: acc, Prepare: p})
	}

	requestID, slot, ok := s.pending.Allocate()
	if !ok {
		return ilp.Fulfill{}, ilp.InternalError()
	}
	frame, err := btp.EncodePrepare(requestID, p)
	if err != nil {
		s.pending.Remove(requestID)
		return ilp.Fulfill{}, ilp.InternalError()
	}
	if err := conn.Send(frame); err != nil {
		s.pending.Remove(requestID)
		return ilp.Fulfill{}, ilp.InternalError()
	}

	select {
	case <-ctx.Done():
		s.pending.Remove(requestID)
		return ilp.Fulfill{}, ilp.InternalError()
	case <-conn.Done():
		s.pending.Remove(requestID)
		return ilp.Fulfill{}, ilp.InternalError()
	case outcome, ok := <-slot.Chan():
		if !ok {
			return ilp.Fulfill{}, ilp.InternalError()
		}
		if outcome.IsFulfill {
			return outcome.Fulfill, nil
		}
		reject := outcome.Reject
		return ilp.Fulfill{}, &reject
	}
}

// SendRequestAsync runs SendRequest in its own goroutine and returns a
// channel carrying its outcome, for callers that want to fan out many
// requests without blocking on each in turn.
func (s *Service) SendRequestAsync(ctx context.Context, acc account.Account, p ilp.Prepare) <-chan api.Result[ilp.Fulfill] {
	out := make(chan api.Result[ilp.Fulfill], 1)
	go func() {
		fulfill, err := s.SendRequest(ctx, acc, p)
		out <- api.Result[ilp.Fulfill]{Value: fulfill, Err: err}
	}()
	return out
}

// Bind attaches the application handler, drains every Prepare buffered
// before this call, and dispatches all subsequent inbound Prepares
// directly. Bind may be called at most once.
//
// The bound flag flip and the buffer drain happen under the same bindMu
// hold as handlePrepare's bound check and push, so there is no window in
// which a concurrent handlePrepare can observe bound == false, lose the
// race to Drain, and push into a buffer nothing will ever read again.
func (s *Service) Bind(handler upstream.IncomingService) error {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()

	if s.bound {
		return ErrAlreadyBound
	}
	s.bound = true
	s.handler = handler

	buffered, err := s.buffer.Drain()
	if err != nil {
		return err
	}
	for _, item := range buffered {
		go s.dispatch(item.From, item.RequestID, item.Prepare)
	}
	return nil
}

func (s *Service) handlePrepare(from account.Account, requestID uint32, p ilp.Prepare) {
	s.bindMu.Lock()
	if !s.bound {
		s.buffer.Push(inbound.Pending{From: from, RequestID: requestID, Prepare: p})
		s.bindMu.Unlock()
		s.metrics.Set("inbound.buffered", s.buffer.Len())
		return
	}
	s.bindMu.Unlock()
	go s.dispatch(from, requestID, p)
}

func (s *Service) dispatch(from account.Account, requestID uint32, p ilp.Prepare) {
	s.bindMu.Lock()
	handler := s.handler
	s.bindMu.Unlock()
	if handler == nil {
		return
	}

	fulfill, err := handler.HandleIncomingRequest(context.Background(), upstream.IncomingRequest{From: from, Prepare: p})
	conn, ok := s.sessions.Get(from.ID())
	if !ok {
		return
	}
	if err != nil {
		reject, ok := err.(*ilp.Reject)
		if !ok {
			reject = ilp.InternalError()
		}
		frame, encErr := btp.EncodeReject(requestID, *reject)
		if encErr != nil {
			log.Printf("mux: account %s: failed to encode reject for request %d: %v", from.ID(), requestID, encErr)
			return
		}
		if sendErr := conn.Send(frame); sendErr != nil {
			log.Printf("mux: account %s: failed to send reject for request %d: %v", from.ID(), requestID, sendErr)
		}
		return
	}
	frame, encErr := btp.EncodeFulfill(requestID, fulfill)
	if encErr != nil {
		log.Printf("mux: account %s: failed to encode fulfill for request %d: %v", from.ID(), requestID, encErr)
		return
	}
	if sendErr := conn.Send(frame); sendErr != nil {
		log.Printf("mux: account %s: failed to send fulfill for request %d: %v", from.ID(), requestID, sendErr)
	}
}

func (s *Service) handleReply(requestID uint32, fulfill *ilp.Fulfill, reject *ilp.Reject) {
	slot, ok := s.pending.Take(requestID)
	if !ok {
		log.Printf("mux: reply for unknown or already-resolved request %d", requestID)
		return
	}
	if fulfill != nil {
		slot.Resolve(correlation.Outcome{IsFulfill: true, Fulfill: *fulfill})
		return
	}
	slot.Resolve(correlation.Outcome{IsFulfill: false, Reject: *reject})
}

// Shutdown tears down every live session and cancels every in-flight
// outgoing request.
func (s *Service) Shutdown(ctx context.Context) error {
	s.sessions.Range(func(_ account.ID, c *session.Conn) {
		c.Close()
	})
	for _, slot := range s.pending.DrainAll() {
		slot.Cancel()
	}
	return nil
}
