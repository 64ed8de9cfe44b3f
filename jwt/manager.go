package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the smallest accepted HMAC-SHA256 signing secret, in bytes.
	MinSecretLength = 32
	// MaxLeeway bounds the clock-skew allowance applied to exp and iat.
	MaxLeeway = 2 * time.Minute
)

var (
	// ErrInvalid is returned for malformed tokens, bad signatures and unsupported algorithms.
	ErrInvalid = errors.New("token invalid")
	// ErrExpired is returned for correctly signed tokens whose exp claim has passed.
	ErrExpired = errors.New("token expired")
)

// Config defines the signing material and lifetimes used by a Manager.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
	Now        func() time.Time
}

// Manager mints and verifies HS256 access and refresh tokens.
//
// Manager holds no mutable state after construction and is safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the claim set carried by both token kinds. Refresh tokens never carry Auth.
type Claims struct {
	Auth string `json:"auth,omitempty"`
	jwt.RegisteredClaims
}

// Authorities splits the comma-joined auth claim.
func (c *Claims) Authorities() []string {
	if c == nil || c.Auth == "" {
		return nil
	}
	parts := strings.Split(c.Auth, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Token is a signed token string together with its issue and expiry instants.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewManager validates cfg and returns a Manager that owns a private copy of it.
//
// NewManager returns an error when the secret is shorter than MinSecretLength or
// when the lifetimes are not positive with RefreshTTL strictly above AccessTTL.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must be greater than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > MaxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess mints an access token for subject carrying the joined authorities.
func (m *Manager) CreateAccess(subject string, authorities []string) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("subject required")
	}
	if len(authorities) == 0 {
		return Token{}, errors.New("access token requires at least one authority")
	}
	return m.sign(subject, strings.Join(authorities, ","), m.config.AccessTTL)
}

// CreateRefresh mints a refresh token for subject. It never carries authorities.
func (m *Manager) CreateRefresh(subject string) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("subject required")
	}
	return m.sign(subject, "", m.config.RefreshTTL)
}

func (m *Manager) sign(subject, auth string, ttl time.Duration) (Token, error) {
	// NumericDate has second precision; truncate so exp-iat is exactly ttl on the wire.
	issuedAt := m.config.Now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := Claims{
		Auth: auth,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature of tokenStr and then its time claims.
//
// A correctly signed but expired token returns its claims together with an
// error wrapping ErrExpired. Every other failure returns nil claims and an
// error wrapping ErrInvalid.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalid)
	}

	parser := jwt.NewParser(m.parserOptions()...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && token != nil {
			claims, ok := token.Claims.(*Claims)
			if ok && m.expiredClaimsUsable(claims) {
				return claims, fmt.Errorf("%w: %v", ErrExpired, err)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, jwt.ErrTokenInvalidClaims)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	return claims, nil
}

// RemainingValidity returns how much longer Parse will accept a correctly
// signed token: exp plus the configured leeway, minus now.
//
// The result is zero or negative once the token is past that point; only
// signature and format failures return an error.
func (m *Manager) RemainingValidity(tokenStr string) (time.Duration, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil && !errors.Is(err, ErrExpired) {
		return 0, err
	}
	return m.Remaining(claims), nil
}

// Remaining returns exp plus leeway minus now for already parsed claims.
// A blacklist entry written with this TTL outlives every Parse that would
// still accept the token.
func (m *Manager) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Add(m.config.Leeway).Sub(m.config.Now())
}

func (m *Manager) parserOptions() []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	return options
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.config.Secret, nil
}

// expiredClaimsUsable rejects expired tokens that would also fail a non-time check.
func (m *Manager) expiredClaimsUsable(claims *Claims) bool {
	if claims == nil || claims.Subject == "" {
		return false
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return false
	}
	return true
}
