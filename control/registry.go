// File: control/registry.go
// Package control — Registry composes ConfigStore, MetricsRegistry, and
// DebugProbes into the single object the facade exposes as api.Control
// and api.Debug.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package control

import "github.com/momentics/btp-mux/api"

var (
	_ api.Control = (*Registry)(nil)
	_ api.Debug   = (*Registry)(nil)
)

// Registry is the facade's runtime control surface: live configuration,
// metrics, and debug probes, all dynamically updatable.
type Registry struct {
	config  *ConfigStore
	metrics *MetricsRegistry
	debug   *DebugProbes
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		config:  NewConfigStore(),
		metrics: NewMetricsRegistry(),
		debug:   NewDebugProbes(),
	}
}

// Metrics exposes the underlying MetricsRegistry directly, for
// components that want to Set values without going through Stats.
func (r *Registry) Metrics() *MetricsRegistry { return r.metrics }

// GetConfig implements api.Control.
func (r *Registry) GetConfig() map[string]any { return r.config.GetSnapshot() }

// SetConfig implements api.Control.
func (r *Registry) SetConfig(cfg map[string]any) error {
	r.config.SetConfig(cfg)
	return nil
}

// Stats implements api.Control, merging live metrics with debug probe
// output under a "debug." prefix.
func (r *Registry) Stats() map[string]any {
	out := r.metrics.GetSnapshot()
	for k, v := range r.debug.DumpState() {
		out["debug."+k] = v
	}
	return out
}

// OnReload implements api.Control.
func (r *Registry) OnReload(fn func()) { r.config.OnReload(fn) }

// RegisterDebugProbe implements api.Control.
func (r *Registry) RegisterDebugProbe(name string, fn func() any) { r.debug.RegisterProbe(name, fn) }

// DumpState implements api.Debug.
func (r *Registry) DumpState() map[string]any { return r.debug.DumpState() }

// RegisterProbe implements api.Debug.
func (r *Registry) RegisterProbe(name string, fn func() any) { r.debug.RegisterProbe(name, fn) }
