// Package config provides centralized configuration management.
//
// Configuration is loaded from environment variables (NWLENS_ prefix)
// with sane defaults, optionally overlaid by a YAML file:
//
//	cfg := config.LoadOrDefault()
//	cfg, err := config.LoadFile("nwlens.yaml")
//
// Groups:
//   - Server: HTTP control-plane bind address
//   - Ports: debugging port pool range
//   - Debug: readiness delay, poll cadence, log retention
//   - Logging: level and output mode
//   - RateLimit: per-IP request limiting
package config
