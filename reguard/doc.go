// Package reguard re-confirms a visitor's role against the backend before
// privileged pages render.
//
// The edge gate trusts an unverified role claim. Pages that show privileged
// UI mount a [Guard] as well: one profile lookup per mount, a three-state
// contract (checking, authorized, unauthorized), and a visible access-denied
// view on failure. Lookup failures and role mismatches look the same to the
// visitor. The guard never retries and never redirects silently.
package reguard
