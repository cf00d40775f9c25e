package facade_test

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/facade"
	"github.com/momentics/btp-mux/fake"
	"github.com/momentics/btp-mux/ilp"
)

func TestBTPMuxFullLifecycle(t *testing.T) {
	h := facade.New(facade.DefaultConfig(), nil)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	alice := account.Static("alice")
	wire := fake.NewConn()
	h.AddConnection(alice, wire)

	incoming := &fake.IncomingService{Fulfill: ilp.Fulfill{Data: []byte("ack")}}
	if err := h.Bind(incoming); err != nil {
		t.Fatal(err)
	}

	called := false
	h.RegisterReloadHook(func() { called = true })
	h.Control().SetConfig(map[string]any{"some": "data"})
	time.Sleep(10 * time.Millisecond)
	if !called {
		t.Error("reload hook not triggered")
	}

	dbg := h.Debug()
	if dbg.DumpState() == nil {
		t.Error("debug state should not be nil")
	}

	if err := h.Shutdown(); err != nil {
		t.Error(err)
	}
}

func TestBTPMuxMetricsAndInfo(t *testing.T) {
	h := facade.New(facade.DefaultConfig(), nil)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	bob := account.Static("bob")
	wire := fake.NewConn()
	h.AddConnection(bob, wire)

	m := h.Metrics()
	if m.NumSessions != 1 {
		t.Fatalf("NumSessions = %d, want 1", m.NumSessions)
	}
	if m.StartedAt.IsZero() {
		t.Error("StartedAt should be set after Start")
	}

	info := h.Info()
	if info.Name != "btp-mux" {
		t.Errorf("Info().Name = %q, want btp-mux", info.Name)
	}
	if info.Version == "" {
		t.Error("Info().Version should not be empty")
	}
}

func TestBTPMuxSendRequestWithFallback(t *testing.T) {
	fallback := &fake.OutgoingService{Fulfill: ilp.Fulfill{Data: []byte("fallback")}}
	h := facade.New(facade.DefaultConfig(), fallback)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	fulfill, err := h.Mux().SendRequest(ctx, account.Static("carol"), ilp.Prepare{Destination: "g.carol"})
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if string(fulfill.Data) != "fallback" {
		t.Fatalf("fulfill.Data = %q, want %q", fulfill.Data, "fallback")
	}
}
