// Package control is the multiplexer's ambient operations layer: live
// configuration, runtime metrics, and debug probe registration.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload
//   - Metrics telemetry contracts
//   - State export, debug hooks, and probe registration
package control
