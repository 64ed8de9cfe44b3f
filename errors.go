package tokenauth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/tokenauth/identity"
)

var (
	// ErrUnauthorized is returned when a protected call carries no bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is returned for a well-signed access token past its exp.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid is returned for malformed, forged or wrongly signed access tokens.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrTokenRevoked is returned for an access token that was blacklisted at logout.
	ErrTokenRevoked = errors.New("access token revoked")
	// ErrAuthoritiesMissing is returned when a verified token carries no auth claim.
	ErrAuthoritiesMissing = errors.New("token carries no authorities")
	// ErrForbidden is returned when the principal lacks a required authority.
	ErrForbidden = errors.New("forbidden")
	// ErrRefreshInvalid is returned when a refresh token cannot be used for reissue.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshMismatch is returned when the presented refresh token is not the stored one.
	// It wraps ErrRefreshInvalid.
	ErrRefreshMismatch = fmt.Errorf("%w: presented token does not match stored value", ErrRefreshInvalid)
	// ErrRefreshMissing is returned when a reissue call presents no refresh token.
	ErrRefreshMissing = errors.New("refresh token missing")
	// ErrRefreshExpired is returned for a well-signed refresh token past its exp.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrUnsupportedProvider is returned for an unknown OAuth provider name.
	ErrUnsupportedProvider = identity.ErrUnsupportedProvider
	// ErrMalformedAttributes is returned when a provider payload lacks required attributes.
	ErrMalformedAttributes = identity.ErrMalformedAttributes
	// ErrStoreUnavailable is returned when Redis or the identity store cannot be reached.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrLogoutIncomplete is returned when logout could not finish every store write.
	ErrLogoutIncomplete = errors.New("logout incomplete")
	// ErrInvalidInput is returned for rejected request input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDevLoginDisabled is returned by DevLogin unless Config.DevLogin.Enabled is set.
	ErrDevLoginDisabled = errors.New("dev login disabled")
	// ErrIdentityNotFound is returned when no identity exists for a subject.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEngineNotReady is returned when Engine methods are called on a zero Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind is the closed set of client-visible failure classes.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindTokenExpired
	KindTokenInvalid
	KindAuthoritiesMissing
	KindForbidden
	KindInvalidRefreshToken
	KindRefreshTokenMissing
	KindRefreshTokenExpired
	KindUnsupportedProvider
	KindStoreUnavailable
	KindInvalidInput
	KindUserNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindTokenExpired:
		return "token_expired"
	case KindTokenInvalid:
		return "token_invalid"
	case KindAuthoritiesMissing:
		return "authorities_missing"
	case KindForbidden:
		return "forbidden"
	case KindInvalidRefreshToken:
		return "invalid_refresh_token"
	case KindRefreshTokenMissing:
		return "refresh_token_missing"
	case KindRefreshTokenExpired:
		return "refresh_token_expired"
	case KindUnsupportedProvider:
		return "unsupported_provider"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindInvalidInput:
		return "invalid_input"
	case KindUserNotFound:
		return "user_not_found"
	default:
		return "internal"
	}
}

// ErrorCode is the transport translation of an error.
type ErrorCode struct {
	Kind       ErrorKind
	HTTPStatus int
	Code       string
	Message    string
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrTokenExpired):
		return KindTokenExpired
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenRevoked):
		return KindTokenInvalid
	case errors.Is(err, ErrAuthoritiesMissing):
		return KindAuthoritiesMissing
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrRefreshInvalid):
		return KindInvalidRefreshToken
	case errors.Is(err, ErrRefreshMissing):
		return KindRefreshTokenMissing
	case errors.Is(err, ErrRefreshExpired):
		return KindRefreshTokenExpired
	case errors.Is(err, ErrUnsupportedProvider), errors.Is(err, ErrMalformedAttributes):
		return KindUnsupportedProvider
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrLogoutIncomplete):
		return KindStoreUnavailable
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDevLoginDisabled):
		return KindInvalidInput
	case errors.Is(err, ErrIdentityNotFound):
		return KindUserNotFound
	default:
		return KindInternal
	}
}

// CodeOf translates err into its HTTP status, stable code and message.
func CodeOf(err error) ErrorCode {
	kind := KindOf(err)
	switch kind {
	case KindUnauthorized:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4001", "authentication required"}
	case KindTokenExpired:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4002", "access token expired"}
	case KindTokenInvalid:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4003", "invalid access token"}
	case KindAuthoritiesMissing:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4004", "token carries no authorities"}
	case KindForbidden:
		return ErrorCode{kind, http.StatusForbidden, "AUTH4005", "access denied"}
	case KindInvalidRefreshToken:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4006", "invalid refresh token"}
	case KindRefreshTokenMissing:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4007", "refresh token missing"}
	case KindRefreshTokenExpired:
		return ErrorCode{kind, http.StatusUnauthorized, "AUTH4008", "refresh token expired"}
	case KindUnsupportedProvider:
		return ErrorCode{kind, http.StatusBadRequest, "AUTH4010", "unsupported or malformed provider login"}
	case KindStoreUnavailable:
		return ErrorCode{kind, http.StatusServiceUnavailable, "COMMON503", "service temporarily unavailable"}
	case KindInvalidInput:
		if errors.Is(err, ErrDevLoginDisabled) {
			return ErrorCode{kind, http.StatusNotFound, "COMMON400", "dev login disabled"}
		}
		return ErrorCode{kind, http.StatusBadRequest, "COMMON400", "invalid request"}
	case KindUserNotFound:
		return ErrorCode{kind, http.StatusNotFound, "USER4041", "user not found"}
	case KindInternal:
		return ErrorCode{kind, http.StatusInternalServerError, "COMMON500", "internal server error"}
	default:
		return ErrorCode{KindInternal, http.StatusInternalServerError, "COMMON500", "internal server error"}
	}
}
