package tokenauth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// Config is the full engine configuration. It is cloned into the Builder and
// treated as immutable after Build.
type Config struct {
	JWT      JWTConfig
	Store    StoreConfig
	Cookie   CookieConfig
	OAuth    OAuthConfig
	DevLogin DevLoginConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the HS256 token codec.
//
// Secret is the raw HMAC key (decode base64 before setting it). It must be at
// least 32 bytes.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig configures Redis key layout and rotation semantics.
type StoreConfig struct {
	RefreshPrefix   string
	BlacklistPrefix string
	// CompareAndSwapRotation makes concurrent reissues of one refresh token
	// admit exactly one winner instead of last write wins.
	CompareAndSwapRotation bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the refresh-token cookie written by httpapi.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig holds the post-login redirect target.
type OAuthConfig struct {
	RedirectURL string
}

/*
====================================
DEV LOGIN CONFIG
====================================
*/

// DevLoginConfig gates the email-only login used in development.
type DevLoginConfig struct {
	Enabled bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters and the authenticate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every field but JWT.Secret populated.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Store: StoreConfig{
			RefreshPrefix:   store.DefaultRefreshPrefix,
			BlacklistPrefix: store.DefaultBlacklistPrefix,
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/api/v1/auth",
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		},
		OAuth: OAuthConfig{
			RedirectURL: "/",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > jwt.MaxLeeway {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Store
	if strings.TrimSpace(c.Store.RefreshPrefix) == "" {
		return errors.New("Store RefreshPrefix must not be empty")
	}
	if strings.TrimSpace(c.Store.BlacklistPrefix) == "" {
		return errors.New("Store BlacklistPrefix must not be empty")
	}
	if c.Store.RefreshPrefix == c.Store.BlacklistPrefix {
		return errors.New("Store RefreshPrefix and BlacklistPrefix must differ")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must not be empty")
	}
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with '/'")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// OAuth
	if strings.TrimSpace(c.OAuth.RedirectURL) == "" {
		return errors.New("OAuth RedirectURL must not be empty")
	}
	if _, err := url.Parse(c.OAuth.RedirectURL); err != nil {
		return errors.New("OAuth RedirectURL is not a valid URL")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
