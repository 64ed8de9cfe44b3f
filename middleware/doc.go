// Package middleware exposes HTTP middleware adapters built on top of
// tokenauth.Engine authentication.
//
// # Guards
//
//   - [Guard]: verifies the bearer access token and injects the principal.
//   - [RequireAuthority]: rejects principals missing an authority with 403.
//
// Rejections are written with the standard response envelope and the status
// and code from tokenauth.CodeOf.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
package middleware
