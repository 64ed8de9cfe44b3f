// Package jwt mints and verifies the HS256 access and refresh tokens used by tokenauth.
//
// The package is pure: no I/O, no package-level mutable state. Verification
// checks the signature and algorithm before any time claim, and distinguishes
// expired tokens (claims still returned) from invalid ones.
package jwt
