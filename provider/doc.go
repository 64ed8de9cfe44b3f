// Package provider performs the OAuth2 authorization-code exchange against
// Google, Naver and Kakao and returns the raw user-info payload.
//
// Payload interpretation is left to identity.Normalize; this package only
// speaks HTTP to the provider.
package provider
