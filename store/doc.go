// Package store holds the Redis-backed key-value stores of the token lifecycle.
//
// RefreshStore keeps at most one refresh token per subject. RevocationStore
// keeps a self-expiring blacklist of logged-out access tokens. Expiry is
// delegated to Redis PX TTLs; nothing in this package sweeps keys.
//
// Every Redis failure is returned wrapped in ErrUnavailable and is never
// reported as "not found" or "not revoked".
package store
