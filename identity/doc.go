// Package identity maps provider user-info payloads onto one canonical Identity.
//
// Each supported provider has its own typed payload shape; nothing here walks
// untyped nested maps. Email is the merge key across providers, so the same
// address reported by two providers resolves to the same Identity.
package identity
