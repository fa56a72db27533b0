// Package internal holds edge-server plumbing that is private to edgegate.
//
// # Sub-packages
//
//   - logging: slog logger construction from settings
//   - rate: Redis-backed fixed-window limiter for live profile lookups
//   - settings: YAML settings with EDGEGATE_* environment overrides
//
// # What this package must NOT do
//
//   - Make routing decisions (those live in the root package).
//   - Be imported by any package outside the edgegate module.
package internal
