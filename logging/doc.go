// Package logging provides a minimal logging interface and adapters for CityMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the bus, runners and coordinator use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - CityMeshLogger with contextual helpers (component, agent, run) and
//     domain specific helpers for decision calls and interactions
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	coord := coordinator.New(citizens, coordinator.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
