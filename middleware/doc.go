// Package middleware adapts the edgegate decision engine to net/http.
//
// [Gate] runs in front of every page request. It reads the credential
// cookies, asks [edgegate.Engine.Evaluate] for a verdict, and either serves
// the page or redirects. Static assets and API calls are skipped through one
// configurable exclusion pattern.
//
// # What this package must NOT do
//
//   - Decode credentials or decide routes itself (delegates to Engine).
//   - Set, clear, or refresh cookies.
//   - Log credential values. Only presence is logged.
package middleware
