// Package route classifies request paths for the authorization engine.
//
// A [Classifier] answers three questions about a path: whether it is an
// auth hand-off that must never be intercepted (bypass), whether it is on the
// public allow-list, and whether it lives under the admin prefix. Classification
// is pure string matching against static configuration; nothing is cached.
package route
