// Package tokenauth issues, validates, rotates and revokes short-lived bearer
// credentials for an HTTP API.
//
// Access tokens are HS256 JWTs carrying the subject and its authorities.
// Refresh tokens are HS256 JWTs with no authorities; exactly one is stored per
// subject in Redis and every reissue replaces it, so a superseded refresh
// token fails its next use. Logout deletes the stored refresh token and
// blacklists the access token until it would have expired anyway.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config],
// the error kinds and [CodeOf], metrics and audit types. Flow orchestration
// lives in internal/flows; Redis access lives in store; provider payload
// handling lives in identity.
//
// # What this package must NOT do
//
//   - Log or audit token strings.
//   - Hold per-subject state in process memory.
//   - Import httpapi, middleware or provider (they import tokenauth).
package tokenauth
