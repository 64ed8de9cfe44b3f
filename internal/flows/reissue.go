package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenauth/identity"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// ReissueFailureKind classifies reissue flow failures for root-level mapping.
type ReissueFailureKind int

const (
	ReissueFailureNone ReissueFailureKind = iota
	ReissueFailureExpired
	ReissueFailureInvalid
	ReissueFailureNotFound
	ReissueFailureMismatch
	ReissueFailureIdentity
	ReissueFailureStore
	ReissueFailureMint
)

// ReissueResult carries either the rotated pair or failure metadata.
type ReissueResult struct {
	Failure ReissueFailureKind
	Err     error
	Subject string
	Tokens  TokenPair
}

type ReissueRefreshStore interface {
	Get(ctx context.Context, subject string) (string, error)
	Put(ctx context.Context, subject, token string) error
	Rotate(ctx context.Context, subject, presented, next string) error
}

// ReissueDeps captures refresh-token rotation dependencies.
type ReissueDeps struct {
	Parse          func(string) (*jwt.Claims, error)
	FindIdentity   func(ctx context.Context, subject string) (identity.Identity, error)
	Mint           MintDeps
	RefreshStore   ReissueRefreshStore
	CompareAndSwap bool
}

// RunReissue validates a presented refresh token against the codec and the
// store, then mints and stores a new pair.
//
// With CompareAndSwap unset the new refresh token is written unconditionally,
// so concurrent reissues resolve by last write wins.
func RunReissue(ctx context.Context, refreshToken string, deps ReissueDeps) ReissueResult {
	claims, err := deps.Parse(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return ReissueResult{Failure: ReissueFailureExpired, Err: err}
		}
		return ReissueResult{Failure: ReissueFailureInvalid, Err: err}
	}
	// Access tokens verify with the same key; only authority-free tokens are refresh tokens.
	if len(claims.Authorities()) > 0 {
		return ReissueResult{Failure: ReissueFailureInvalid, Err: jwt.ErrInvalid, Subject: claims.Subject}
	}
	subject := claims.Subject

	stored, err := deps.RefreshStore.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReissueResult{Failure: ReissueFailureNotFound, Err: err, Subject: subject}
		}
		return ReissueResult{Failure: ReissueFailureStore, Err: err, Subject: subject}
	}
	if stored != refreshToken {
		return ReissueResult{Failure: ReissueFailureMismatch, Err: store.ErrMismatch, Subject: subject}
	}

	id, err := deps.FindIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ReissueResult{Failure: ReissueFailureIdentity, Err: err, Subject: subject}
		}
		return ReissueResult{Failure: ReissueFailureStore, Err: err, Subject: subject}
	}

	pair, err := MintPair(id, deps.Mint)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureMint, Err: err, Subject: subject}
	}

	if deps.CompareAndSwap {
		err = deps.RefreshStore.Rotate(ctx, subject, refreshToken, pair.Refresh.Value)
	} else {
		err = deps.RefreshStore.Put(ctx, subject, pair.Refresh.Value)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrMismatch):
			return ReissueResult{Failure: ReissueFailureMismatch, Err: err, Subject: subject}
		case errors.Is(err, store.ErrNotFound):
			return ReissueResult{Failure: ReissueFailureNotFound, Err: err, Subject: subject}
		default:
			return ReissueResult{Failure: ReissueFailureStore, Err: err, Subject: subject}
		}
	}

	return ReissueResult{Subject: subject, Tokens: pair}
}
