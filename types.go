package tokenauth

import (
	"slices"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
)

// TokenPair is an issued access token and refresh token with their expiries.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is returned by LoginWithProvider and DevLogin.
type LoginResult struct {
	Identity identity.Identity
	Tokens   TokenPair
}

// Principal is the authenticated caller derived from a verified access token.
// It is built from claims alone; no identity lookup is made.
type Principal struct {
	Subject     string
	Authorities []string
	ExpiresAt   time.Time
}

// HasAuthority reports whether p carries authority.
func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Authorities, authority)
}

// IdentityStore is the persistence contract for canonical identities.
type IdentityStore = identity.Store
