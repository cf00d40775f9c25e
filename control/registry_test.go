package control_test

import (
	"testing"
	"time"

	"github.com/momentics/btp-mux/control"
)

func TestRegistryStatsMergesMetricsAndDebugWithPrefix(t *testing.T) {
	r := control.NewRegistry()
	r.Metrics().Set("sessions.active", 3)
	r.RegisterDebugProbe("queue.depth", func() any { return 7 })

	stats := r.Stats()
	if stats["sessions.active"] != 3 {
		t.Errorf("stats[sessions.active] = %v, want 3", stats["sessions.active"])
	}
	if stats["debug.queue.depth"] != 7 {
		t.Errorf("stats[debug.queue.depth] = %v, want 7", stats["debug.queue.depth"])
	}
}

func TestRegistryOnReloadFiresOnSetConfig(t *testing.T) {
	r := control.NewRegistry()
	fired := make(chan struct{}, 1)
	r.OnReload(func() { fired <- struct{}{} })

	if err := r.SetConfig(map[string]any{"k": "v"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("reload hook did not fire")
	}

	if got := r.GetConfig()["k"]; got != "v" {
		t.Errorf("GetConfig()[k] = %v, want v", got)
	}
}

func TestRegistryDumpStateReflectsRegisteredProbes(t *testing.T) {
	r := control.NewRegistry()
	r.RegisterProbe("probe.a", func() any { return "ok" })

	state := r.DumpState()
	if state["probe.a"] != "ok" {
		t.Errorf("DumpState()[probe.a] = %v, want ok", state["probe.a"])
	}
}
