package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
)

// AuthenticateFailureKind classifies bearer validation failures for root-level mapping.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureRevoked
	AuthenticateFailureStore
	AuthenticateFailureExpired
	AuthenticateFailureInvalid
	AuthenticateFailureNoAuthorities
)

// AuthenticateResult returns either verified claims or a classified failure.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error
	Claims  *jwt.Claims
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthenticateDeps captures request-time authentication dependencies.
type AuthenticateDeps struct {
	Parse       func(string) (*jwt.Claims, error)
	Revocations RevocationChecker
}

// RunAuthenticate checks the blacklist, then the token itself. No identity lookup is made.
func RunAuthenticate(ctx context.Context, tokenStr string, deps AuthenticateDeps) AuthenticateResult {
	revoked, err := deps.Revocations.IsRevoked(ctx, tokenStr)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureStore, Err: err}
	}
	if revoked {
		return AuthenticateResult{Failure: AuthenticateFailureRevoked}
	}

	claims, err := deps.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return AuthenticateResult{Failure: AuthenticateFailureExpired, Err: err}
		}
		return AuthenticateResult{Failure: AuthenticateFailureInvalid, Err: err}
	}

	// Refresh tokens verify with the same key but carry no authorities.
	if len(claims.Authorities()) == 0 {
		return AuthenticateResult{Failure: AuthenticateFailureNoAuthorities, Claims: claims}
	}

	return AuthenticateResult{Claims: claims}
}
