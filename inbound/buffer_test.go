package inbound_test

import (
	"testing"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/ilp"
	"github.com/momentics/btp-mux/inbound"
)

func TestDrainPreservesFIFOOrder(t *testing.T) {
	buf := inbound.NewBuffer()
	alice := account.Static("alice")
	buf.Push(inbound.Pending{From: alice, RequestID: 1, Prepare: ilp.Prepare{Destination: "g.one"}})
	buf.Push(inbound.Pending{From: alice, RequestID: 2, Prepare: ilp.Prepare{Destination: "g.two"}})

	if got := buf.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	drained, err := buf.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(drained) != 2 || drained[0].RequestID != 1 || drained[1].RequestID != 2 {
		t.Fatalf("Drain order wrong: %+v", drained)
	}
}

func TestDrainIsSingleConsumer(t *testing.T) {
	buf := inbound.NewBuffer()
	if _, err := buf.Drain(); err != nil {
		t.Fatalf("first Drain: %v", err)
	}
	if _, err := buf.Drain(); err != inbound.ErrAlreadyDrained {
		t.Fatalf("second Drain err = %v, want ErrAlreadyDrained", err)
	}
}

func TestPushAfterDrainIsNoop(t *testing.T) {
	buf := inbound.NewBuffer()
	buf.Push(inbound.Pending{RequestID: 1})
	if _, err := buf.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	buf.Push(inbound.Pending{RequestID: 2})
	if buf.Len() != 0 {
		t.Fatalf("Len() after post-drain push = %d, want 0", buf.Len())
	}
}
