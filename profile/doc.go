// Package profile talks to the backend profile endpoint and caches the
// answer per session.
//
// [Client] performs the one authority lookup the re-guard relies on: a GET
// with the visitor's cookies forwarded, returning the JSON profile and its
// role. [Cache] keeps the last profile seen for a session in Redis so page
// shells need not refetch it on every render. It is keyed by a hash of the
// session credential and invalidated explicitly on logout.
//
// # What this package must NOT do
//
//   - Store credential values as keys or values in Redis.
//   - Retry failed lookups. A failed lookup is reported and the caller fails
//     closed.
package profile
