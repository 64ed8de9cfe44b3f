package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// Engine issues, validates, rotates and revokes tokens.
//
// Engine methods are safe for concurrent use. All cross-request state lives
// in Redis; the engine itself holds no per-subject locks.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	refreshStore *store.RefreshStore
	revocations  *store.RevocationStore
	resolver     *identity.Resolver
	flows        flows.Service
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
}

// Close describes the close operation and its observable behavior.
//
// Close flushes queued audit events and stops the dispatcher. The Redis
// client and identity store are owned by the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks that the token store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.refreshStore.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return nil
}

// LoginWithProvider turns a raw provider user-info payload into an identity
// and issues a fresh token pair, replacing any refresh token stored for it.
func (e *Engine) LoginWithProvider(ctx context.Context, provider string, raw []byte) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := e.flows.Login(ctx, provider, raw)
	if res.Failure != flows.LoginFailureNone {
		err := e.loginError(res)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Identity.Subject, strings.ToUpper(provider), err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Identity.Subject, string(res.Identity.Provider), nil, nil)
	return &LoginResult{Identity: res.Identity, Tokens: toTokenPair(res.Tokens)}, nil
}

// DevLogin issues a token pair for email without a provider round trip.
// It fails with ErrDevLoginDisabled unless Config.DevLogin.Enabled is set.
func (e *Engine) DevLogin(ctx context.Context, email string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.DevLogin.Enabled {
		return nil, ErrDevLoginDisabled
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidInput)
	}

	id, err := e.resolver.ResolveDev(ctx, email)
	if err != nil {
		err = e.identityError(err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, string(identity.ProviderDev), err, nil)
		return nil, err
	}

	res := e.flows.Issue(ctx, id)
	if res.Failure != flows.LoginFailureNone {
		err := e.loginError(res)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, id.Subject, string(identity.ProviderDev), err, nil)
		return nil, err
	}

	e.metricInc(MetricDevLogin)
	e.emitAudit(ctx, auditEventDevLogin, true, id.Subject, string(identity.ProviderDev), nil, nil)
	return &LoginResult{Identity: res.Identity, Tokens: toTokenPair(res.Tokens)}, nil
}

func (e *Engine) loginError(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureAttributes:
		return res.Err
	case flows.LoginFailureIdentity:
		return e.identityError(res.Err)
	case flows.LoginFailurePersist:
		return e.storeError("login", res.Err)
	default:
		e.logger.Error("token issue failed", slog.String("subject", res.Identity.Subject), slog.Any("error", res.Err))
		return fmt.Errorf("issue tokens: %w", res.Err)
	}
}

// Authenticate verifies a bearer access token and returns its principal.
//
// The blacklist is consulted first, then signature and expiry, then the
// presence of authorities. No identity lookup is made.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	res := e.flows.Authenticate(ctx, accessToken)
	switch res.Failure {
	case flows.AuthenticateFailureNone:
	case flows.AuthenticateFailureRevoked:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricRevokedTokenRejected)
		e.emitAudit(ctx, auditEventRevokedTokenUsed, false, "", "", ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked
	case flows.AuthenticateFailureStore:
		e.metricInc(MetricAuthenticateFailure)
		return nil, e.storeError("authenticate", res.Err)
	case flows.AuthenticateFailureExpired:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricTokenExpired)
		return nil, ErrTokenExpired
	case flows.AuthenticateFailureNoAuthorities:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrAuthoritiesMissing
	default:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricAuthenticateSuccess)
	p := &Principal{
		Subject:     res.Claims.Subject,
		Authorities: res.Claims.Authorities(),
	}
	if res.Claims.ExpiresAt != nil {
		p.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return p, nil
}

// Reissue rotates a refresh token into a new access and refresh token pair.
//
// The presented token must verify and match the stored value byte for byte.
// A token that verifies but no longer matches fails with ErrRefreshMismatch,
// which also satisfies errors.Is(err, ErrRefreshInvalid).
func (e *Engine) Reissue(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		e.metricInc(MetricReissueFailure)
		return nil, ErrRefreshMissing
	}

	res := e.flows.Reissue(ctx, refreshToken)
	if res.Failure != flows.ReissueFailureNone {
		err := e.reissueError(ctx, res)
		e.metricInc(MetricReissueFailure)
		e.emitAudit(ctx, auditEventReissueFailure, false, res.Subject, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricReissueSuccess)
	e.emitAudit(ctx, auditEventReissueSuccess, true, res.Subject, "", nil, nil)
	pair := toTokenPair(res.Tokens)
	return &pair, nil
}

func (e *Engine) reissueError(ctx context.Context, res flows.ReissueResult) error {
	switch res.Failure {
	case flows.ReissueFailureExpired:
		e.metricInc(MetricTokenExpired)
		return ErrRefreshExpired
	case flows.ReissueFailureInvalid:
		return ErrRefreshInvalid
	case flows.ReissueFailureNotFound:
		e.metricInc(MetricRefreshNotFound)
		return ErrRefreshInvalid
	case flows.ReissueFailureMismatch:
		e.metricInc(MetricRefreshReuseDetected)
		e.logger.Warn("refresh token reuse detected", slog.String("subject", res.Subject))
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.Subject, "", ErrRefreshMismatch, nil)
		return ErrRefreshMismatch
	case flows.ReissueFailureIdentity:
		return ErrRefreshInvalid
	case flows.ReissueFailureStore:
		return e.storeError("reissue", res.Err)
	default:
		e.logger.Error("token issue failed", slog.String("subject", res.Subject), slog.Any("error", res.Err))
		return fmt.Errorf("issue tokens: %w", res.Err)
	}
}

// Logout deletes the subject's refresh token and blacklists the access token
// for its remaining validity. Expired access tokens are accepted. Logging out
// an already blacklisted token succeeds without touching the refresh entry.
//
// Both store writes are always attempted. If either fails the error wraps
// ErrLogoutIncomplete and every underlying cause.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if accessToken == "" {
		return ErrUnauthorized
	}

	res := e.flows.Logout(ctx, accessToken)
	switch res.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureInvalid:
		return ErrTokenInvalid
	case flows.LogoutFailureNoAuthorities:
		return ErrAuthoritiesMissing
	case flows.LogoutFailurePartial:
		e.metricInc(MetricLogoutPartial)
		e.metricInc(MetricStoreUnavailable)
		e.logger.Error("logout incomplete",
			slog.String("subject", res.Subject),
			slog.Bool("refresh_deleted", res.RefreshDeleted),
			slog.Bool("blacklist_written", res.BlacklistWritten),
			slog.Any("error", res.Err),
		)
		err := fmt.Errorf("%w: %w", ErrLogoutIncomplete, res.Err)
		e.emitAudit(ctx, auditEventLogoutPartial, false, res.Subject, "", err, nil)
		return err
	}

	if res.AlreadyRevoked {
		e.logger.Debug("logout of revoked access token", slog.String("subject", res.Subject))
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.Subject, "", nil, func() map[string]string {
		return map[string]string{
			"blacklisted":     fmt.Sprintf("%t", res.BlacklistWritten),
			"already_revoked": fmt.Sprintf("%t", res.AlreadyRevoked),
		}
	})
	return nil
}

// Identity returns the stored identity for subject.
func (e *Engine) Identity(ctx context.Context, subject string) (identity.Identity, error) {
	if err := e.ready(); err != nil {
		return identity.Identity{}, err
	}
	id, err := e.resolver.Find(ctx, subject)
	if err != nil {
		return identity.Identity{}, e.identityError(err)
	}
	return id, nil
}

func (e *Engine) identityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrIdentityNotFound, err)
	case errors.Is(err, identity.ErrMalformedAttributes), errors.Is(err, identity.ErrUnsupportedProvider):
		return err
	default:
		return e.storeError("identity", err)
	}
}

func (e *Engine) storeError(op string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Error("store unavailable", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func toTokenPair(p flows.TokenPair) TokenPair {
	return TokenPair{
		AccessToken:      p.Access.Value,
		RefreshToken:     p.Refresh.Value,
		AccessExpiresAt:  p.Access.ExpiresAt,
		RefreshExpiresAt: p.Refresh.ExpiresAt,
	}
}
