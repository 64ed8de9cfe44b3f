package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnsupportedProvider is returned for provider names outside the fixed set.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrMalformedAttributes is returned when a payload does not match its provider's shape.
	ErrMalformedAttributes = errors.New("malformed provider attributes")
	// ErrNotFound is returned by a Store when no identity has the subject.
	ErrNotFound = errors.New("identity not found")
	// ErrUnavailable wraps identity storage failures.
	ErrUnavailable = errors.New("identity store unavailable")
)

// Role is the coarse authorization level of an Identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Authority returns the authority string carried in access tokens, e.g. ROLE_USER.
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Provider identifies where an Identity was first onboarded from.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderNaver  Provider = "NAVER"
	ProviderKakao  Provider = "KAKAO"
	ProviderDev    Provider = "DEV"
)

// ParseProvider maps an OAuth registration name (google, naver, kakao) onto a Provider.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google":
		return ProviderGoogle, nil
	case "naver":
		return ProviderNaver, nil
	case "kakao":
		return ProviderKakao, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

// Identity is the canonical principal.
type Identity struct {
	Subject     string    `json:"subject"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	Provider    Provider  `json:"provider"`
	ProviderID  string    `json:"providerId"`
	Picture     string    `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Authorities returns the authority strings minted into access tokens for i.
func (i Identity) Authorities() []string {
	return []string{i.Role.Authority()}
}

// OAuthAttributes is the transient result of normalizing one provider payload.
type OAuthAttributes struct {
	Name       string
	Email      string
	Picture    string
	Provider   Provider
	ProviderID string
}

// Store persists identities keyed by subject.
type Store interface {
	FindBySubject(ctx context.Context, subject string) (Identity, error)
	Save(ctx context.Context, identity Identity) error
}
