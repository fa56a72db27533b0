// Package claims reads role hints out of credential payloads without verifying them.
//
// [Decode] splits a compact token into its three segments, base64url-decodes the
// payload segment, and parses it as a JSON object. The result is an [Unverified]
// value: it records what a credential claims, never whether the claim is true.
//
// # What this package must NOT do
//
//   - Verify signatures, expiry, issuer, or audience.
//   - Return errors or panic on malformed input (every fault collapses to "no claims").
//   - Produce a type that could be mistaken for verified identity.
package claims
