package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// LogoutFailureKind classifies logout flow failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureInvalid
	LogoutFailureNoAuthorities
	LogoutFailurePartial
)

// LogoutResult reports what a logout changed.
type LogoutResult struct {
	Failure          LogoutFailureKind
	Err              error
	Subject          string
	Remaining        time.Duration
	RefreshDeleted   bool
	BlacklistWritten bool
	AlreadyRevoked   bool
}

type LogoutRefreshStore interface {
	Delete(ctx context.Context, subject string) error
}

type RevocationWriter interface {
	MarkRevoked(ctx context.Context, token string, ttl time.Duration) error
}

type LogoutRevocations interface {
	RevocationChecker
	RevocationWriter
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Parse        func(string) (*jwt.Claims, error)
	Remaining    func(*jwt.Claims) time.Duration
	RefreshStore LogoutRefreshStore
	Revocations  LogoutRevocations
}

// RunLogout deletes the subject's refresh token and blacklists the access token.
//
// Expired access tokens are accepted. A token already on the blacklist logs
// out as a no-op and never touches the refresh entry, which may belong to a
// later session. Otherwise both store writes are always attempted and their
// errors are joined into one partial-failure result.
func RunLogout(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.Parse(accessToken)
	if err != nil && !errors.Is(err, jwt.ErrExpired) {
		return LogoutResult{Failure: LogoutFailureInvalid, Err: err}
	}
	if len(claims.Authorities()) == 0 {
		return LogoutResult{Failure: LogoutFailureNoAuthorities, Subject: claims.Subject}
	}

	remaining := deps.Remaining(claims)
	result := LogoutResult{Subject: claims.Subject, Remaining: remaining}

	var checkErr error
	if remaining > 0 {
		revoked, err := deps.Revocations.IsRevoked(ctx, accessToken)
		if err == nil && revoked {
			result.AlreadyRevoked = true
			return result
		}
		checkErr = err
	}

	deleteErr := deps.RefreshStore.Delete(ctx, claims.Subject)
	result.RefreshDeleted = deleteErr == nil

	revokeErr := deps.Revocations.MarkRevoked(ctx, accessToken, remaining)
	result.BlacklistWritten = revokeErr == nil && remaining > 0

	if joined := errors.Join(checkErr, deleteErr, revokeErr); joined != nil {
		result.Failure = LogoutFailurePartial
		result.Err = joined
	}
	return result
}
