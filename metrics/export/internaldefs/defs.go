package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "tokenauth_audit_dropped_total"

// AuditDroppedHelp is the help string for AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Provider logins that issued a token pair."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Provider logins that failed."},
	{ID: tokenauth.MetricDevLogin, Name: "tokenauth_dev_login_total", Help: "Successful dev logins."},
	{ID: tokenauth.MetricReissueSuccess, Name: "tokenauth_reissue_success_total", Help: "Successful refresh token rotations."},
	{ID: tokenauth.MetricReissueFailure, Name: "tokenauth_reissue_failure_total", Help: "Rejected reissue attempts."},
	{ID: tokenauth.MetricRefreshReuseDetected, Name: "tokenauth_refresh_reuse_detected_total", Help: "Valid refresh tokens presented after rotation."},
	{ID: tokenauth.MetricRefreshNotFound, Name: "tokenauth_refresh_not_found_total", Help: "Reissues for subjects with no stored refresh token."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Completed logouts."},
	{ID: tokenauth.MetricLogoutPartial, Name: "tokenauth_logout_partial_total", Help: "Logouts with at least one failed store write."},
	{ID: tokenauth.MetricAuthenticateSuccess, Name: "tokenauth_authenticate_success_total", Help: "Accepted bearer tokens."},
	{ID: tokenauth.MetricAuthenticateFailure, Name: "tokenauth_authenticate_failure_total", Help: "Rejected bearer tokens."},
	{ID: tokenauth.MetricRevokedTokenRejected, Name: "tokenauth_revoked_token_rejected_total", Help: "Bearer tokens rejected by the blacklist."},
	{ID: tokenauth.MetricTokenExpired, Name: "tokenauth_token_expired_total", Help: "Expired tokens presented."},
	{ID: tokenauth.MetricStoreUnavailable, Name: "tokenauth_store_unavailable_total", Help: "Operations failed by an unreachable store."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricAuthenticateLatency, Name: "tokenauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds in seconds of the first seven buckets.
// The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
