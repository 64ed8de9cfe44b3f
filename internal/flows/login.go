package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/identity"
	"github.com/MrEthical07/tokenauth/jwt"
)

// TokenPair is a freshly minted access and refresh token.
type TokenPair struct {
	Access  jwt.Token
	Refresh jwt.Token
}

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureAttributes
	LoginFailureIdentity
	LoginFailureMint
	LoginFailurePersist
)

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure  LoginFailureKind
	Err      error
	Identity identity.Identity
	Tokens   TokenPair
}

type RefreshWriter interface {
	Put(ctx context.Context, subject, token string) error
}

// MintDeps captures the token codec calls needed to issue a pair.
type MintDeps struct {
	CreateAccess  func(subject string, authorities []string) (jwt.Token, error)
	CreateRefresh func(subject string) (jwt.Token, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Normalize    func(provider string, raw []byte) (identity.OAuthAttributes, error)
	Resolve      func(ctx context.Context, attrs identity.OAuthAttributes) (identity.Identity, error)
	Mint         MintDeps
	RefreshStore RefreshWriter
}

// MintPair signs a new access and refresh token for id.
func MintPair(id identity.Identity, deps MintDeps) (TokenPair, error) {
	access, err := deps.CreateAccess(id.Subject, id.Authorities())
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := deps.CreateRefresh(id.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// RunLogin normalizes a provider payload, resolves the identity and issues a pair.
func RunLogin(ctx context.Context, provider string, raw []byte, deps LoginDeps) LoginResult {
	attrs, err := deps.Normalize(provider, raw)
	if err != nil {
		return LoginResult{Failure: LoginFailureAttributes, Err: err}
	}

	id, err := deps.Resolve(ctx, attrs)
	if err != nil {
		return LoginResult{Failure: LoginFailureIdentity, Err: err}
	}

	return RunIssue(ctx, id, deps)
}

// RunIssue mints a pair for an already resolved identity and persists the refresh token.
func RunIssue(ctx context.Context, id identity.Identity, deps LoginDeps) LoginResult {
	pair, err := MintPair(id, deps.Mint)
	if err != nil {
		return LoginResult{Failure: LoginFailureMint, Err: err, Identity: id}
	}

	if err := deps.RefreshStore.Put(ctx, id.Subject, pair.Refresh.Value); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err, Identity: id}
	}

	return LoginResult{Identity: id, Tokens: pair}
}
