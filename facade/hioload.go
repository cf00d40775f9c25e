// File: facade/hioload.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package facade provides BTPMux, the single entry point that wires the
// multiplexer together with its ambient control surface — live
// configuration, metrics, and debug probes — for one-call setup in a
// host process.

package facade

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/api"
	"github.com/momentics/btp-mux/control"
	"github.com/momentics/btp-mux/mux"
	"github.com/momentics/btp-mux/session"
	"github.com/momentics/btp-mux/upstream"
)

// Config exposes all configurable parameters for a BTPMux deployment.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	EnableMetrics   bool
	EnableDebug     bool
}

// DefaultConfig provides a baseline configuration for most deployments.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: 30 * time.Second,
		EnableMetrics:   true,
		EnableDebug:     true,
	}
}

// BTPMux is the facade struct: one multiplexer, plus the config, metrics,
// and debug plumbing a host process uses to operate it.
type BTPMux struct {
	mux      *mux.Service
	registry *control.Registry

	config    *Config
	mu        sync.RWMutex
	started   bool
	startedAt time.Time
}

// Version and Build identify the facade build for ServiceInfo reporting.
// Set at link time in real deployments; fixed here since this module has
// no build pipeline of its own.
const (
	Version = "0.1.0"
	Build   = "dev"
)

var _ api.GracefulShutdown = (*BTPMux)(nil)

// New creates and initializes a BTPMux facade instance. fallback may be
// nil; see mux.New.
func New(cfg *Config, fallback upstream.OutgoingService) *BTPMux {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &BTPMux{
		mux:      mux.New(fallback),
		registry: control.NewRegistry(),
		config:   cfg,
	}
	h.registry.SetConfig(map[string]any{
		"listen_addr": cfg.ListenAddr,
	})
	h.registry.RegisterDebugProbe("mux", func() any { return h.mux.Debug().DumpState() })
	return h
}

// Start marks the facade as running and pushes the metrics-enabled flag
// into the live config. Calling Start more than once is a no-op.
func (h *BTPMux) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if h.config.EnableMetrics {
		h.registry.SetConfig(map[string]any{"metrics.enabled": true})
	}
	h.started = true
	h.startedAt = time.Now()
	return nil
}

// Stop tears down every session and cancels every in-flight request,
// bounded by the configured shutdown timeout.
func (h *BTPMux) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.config.ShutdownTimeout)
	defer cancel()
	if err := h.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("facade: shutdown: %w", err)
	}
	h.started = false
	return nil
}

// Shutdown implements api.GracefulShutdown.
func (h *BTPMux) Shutdown() error {
	return h.Stop()
}

// AddConnection attaches a new BTP connection for acc and returns its
// session.Conn handle.
func (h *BTPMux) AddConnection(acc account.Account, ws session.WireConn) *session.Conn {
	return h.mux.AddConnection(acc, ws)
}

// Bind attaches the application handler that processes inbound Prepares,
// draining anything buffered beforehand. See mux.Service.Bind.
func (h *BTPMux) Bind(handler upstream.IncomingService) error {
	return h.mux.Bind(handler)
}

// Mux exposes the underlying multiplexer for direct use.
func (h *BTPMux) Mux() *mux.Service { return h.mux }

// Control exposes the hot-reload, dynamic config, metrics, and probe
// registration interface.
func (h *BTPMux) Control() api.Control { return h.registry }

// Debug provides direct access to the Debug interface for dynamic probe
// registration and live introspection.
func (h *BTPMux) Debug() api.Debug { return h.registry }

// RegisterReloadHook registers a callback invoked when config is
// hot-reloaded via Control().SetConfig.
func (h *BTPMux) RegisterReloadHook(fn func()) {
	h.registry.OnReload(fn)
}

// Metrics returns a point-in-time snapshot in the shared api.APIMetrics
// layout, for health endpoints and external monitoring integrations.
func (h *BTPMux) Metrics() api.APIMetrics {
	h.mu.RLock()
	startedAt := h.startedAt
	h.mu.RUnlock()

	bytesIn, bytesOut := h.mux.TrafficTotals()
	return api.APIMetrics{
		NumSessions:     h.mux.SessionCount(),
		InboundTraffic:  bytesIn,
		OutboundTraffic: bytesOut,
		StartedAt:       startedAt,
	}
}

// Info returns static build and runtime identification for external
// tooling, in the shared api.ServiceInfo layout.
func (h *BTPMux) Info() api.ServiceInfo {
	h.mu.RLock()
	startedAt := h.startedAt
	h.mu.RUnlock()

	return api.ServiceInfo{
		Name:      "btp-mux",
		Version:   Version,
		Build:     Build,
		StartedAt: startedAt,
	}
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
