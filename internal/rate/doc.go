// Package rate provides a Redis-backed fixed-window limiter.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Keys are "<prefix>:<key>", prefix
// "egr" by default. The edge server uses it to cap live profile lookups per
// session.
//
// # What this package must NOT do
//
//   - Decide what a key means. Callers pass hashed identifiers, never
//     credentials.
package rate
