// Package main is the entry point for the nwlens debug orchestrator.
//
// The server discovers locally installed NW.js applications, launches
// them with debugging instrumentation, and tracks the resulting
// sessions so a UI can attach inspector frontends to them.
//
// The server provides:
//   - REST API for discovery and session control
//   - WebSocket streaming of store change events
//   - Prometheus metrics
//   - Rate limiting for the control API
//
// Configuration:
//   - Environment variables with the NWLENS_ prefix
//   - Optional YAML file overlay (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# Default loopback bind
//	./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
