// Package edgegate decides, before a page renders, whether a visitor may
// reach a path of the DevCollab web client.
//
// The decision is based on two facts only: whether an access or refresh
// credential cookie is present, and the role claim decoded from it without
// signature verification. The gate is a navigation aid. The backend API
// remains the authority for every data operation.
//
// # Call sites
//
// One [Engine] serves every call site:
//
//   - the edge dispatcher in package middleware
//   - server-rendered handlers, through [DecisionFromContext]
//   - the live re-guard in package reguard, which re-checks the role against
//     the backend profile endpoint
//
// # Precedence
//
// [Engine.Decide] applies a fixed rule order: auth hand-off paths pass,
// the admin namespace is resolved next, authenticated visitors are sent home
// from auth forms and the landing page, and unauthenticated visitors are sent
// to login from everything that is not public. Every redirect target is
// allowed for the same credentials, and [Config.Validate] rejects target
// tables that would break that.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
package edgegate
