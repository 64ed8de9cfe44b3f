package tokenauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventDevLogin             = "dev_login"
	auditEventReissueSuccess       = "reissue_success"
	auditEventReissueFailure       = "reissue_failure"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventLogoutPartial        = "logout_partial"
	auditEventRevokedTokenUsed     = "revoked_token_used"
)

// AuditErrorCode is the short error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrTokenExpired        AuditErrorCode = "token_expired"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrTokenRevoked        AuditErrorCode = "token_revoked"
	auditErrAuthoritiesMissing  AuditErrorCode = "authorities_missing"
	auditErrRefreshMismatch     AuditErrorCode = "refresh_mismatch"
	auditErrRefreshInvalid      AuditErrorCode = "refresh_invalid"
	auditErrRefreshExpired      AuditErrorCode = "refresh_expired"
	auditErrUnsupportedProvider AuditErrorCode = "unsupported_provider"
	auditErrMalformedAttributes AuditErrorCode = "malformed_attributes"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	provider string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		Provider:  provider,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAuthoritiesMissing):
		return auditErrAuthoritiesMissing
	case errors.Is(err, ErrRefreshMismatch):
		return auditErrRefreshMismatch
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrRefreshExpired):
		return auditErrRefreshExpired
	case errors.Is(err, ErrUnsupportedProvider):
		return auditErrUnsupportedProvider
	case errors.Is(err, ErrMalformedAttributes):
		return auditErrMalformedAttributes
	case errors.Is(err, ErrIdentityNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrLogoutIncomplete):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
