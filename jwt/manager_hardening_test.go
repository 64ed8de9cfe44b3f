package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func signRaw(t *testing.T, m gjwt.SigningMethod, claims gjwt.Claims, key interface{}) string {
	t.Helper()
	s, err := gjwt.NewWithClaims(m, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "short secret", cfg: Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{name: "zero access ttl", cfg: Config{Secret: testSecret, RefreshTTL: time.Hour}},
		{name: "zero refresh ttl", cfg: Config{Secret: testSecret, AccessTTL: time.Minute}},
		{name: "refresh not above access", cfg: Config{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: time.Hour}},
		{name: "negative leeway", cfg: Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour, Leeway: -time.Second}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestAccessRoundTrip(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER", "ROLE_ADMIN"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if got := tok.ExpiresAt.Sub(tok.IssuedAt); got != 30*time.Minute {
		t.Fatalf("expected exp-iat == access ttl, got %v", got)
	}

	claims, err := m.Parse(tok.Value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ann@x.com" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if claims.Auth != "ROLE_USER,ROLE_ADMIN" {
		t.Fatalf("auth claim mismatch: %q", claims.Auth)
	}
	if got := claims.Authorities(); len(got) != 2 || got[1] != "ROLE_ADMIN" {
		t.Fatalf("authorities mismatch: %v", got)
	}
	if !claims.ExpiresAt.Time.Equal(tok.ExpiresAt) {
		t.Fatalf("exp mismatch: %v vs %v", claims.ExpiresAt.Time, tok.ExpiresAt)
	}
}

func TestRefreshCarriesNoAuthorities(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	tok, err := m.CreateRefresh("ann@x.com")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	claims, err := m.Parse(tok.Value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Auth != "" || len(claims.Authorities()) != 0 {
		t.Fatalf("refresh token must not carry authorities, got %q", claims.Auth)
	}
	if got := tok.ExpiresAt.Sub(tok.IssuedAt); got != 14*24*time.Hour {
		t.Fatalf("expected refresh lifetime, got %v", got)
	}
}

func TestTokensMintedInSameSecondDiffer(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	a, err := m.CreateRefresh("ann@x.com")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	b, err := m.CreateRefresh("ann@x.com")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if a.Value == b.Value {
		t.Fatal("expected distinct refresh tokens for the same subject and instant")
	}
}

func TestParseExpiredKeepsClaims(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	clock.Advance(31 * time.Minute)

	claims, err := m.Parse(tok.Value)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if errors.Is(err, ErrInvalid) {
		t.Fatal("expired must not be classified as invalid")
	}
	if claims == nil || claims.Subject != "ann@x.com" {
		t.Fatalf("expected claims on expiry, got %+v", claims)
	}
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	exp := gjwt.NewNumericDate(clock.now.Add(time.Minute))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "tampered signature", token: tamperSignature(tok.Value)},
		{
			name:  "other secret",
			token: signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "ann@x.com", ExpiresAt: exp}}, []byte("another-secret-another-secret-000")),
		},
		{
			name:  "hs512",
			token: signRaw(t, gjwt.SigningMethodHS512, Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "ann@x.com", ExpiresAt: exp}}, testSecret),
		},
		{
			name:  "alg none",
			token: signRaw(t, gjwt.SigningMethodNone, Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "ann@x.com", ExpiresAt: exp}}, gjwt.UnsafeAllowNoneSignatureType),
		},
		{
			name:  "missing exp",
			token: signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "ann@x.com"}}, testSecret),
		},
		{
			name:  "missing subject",
			token: signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: exp}}, testSecret),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := m.Parse(tc.token)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if claims != nil {
				t.Fatal("invalid token must not yield claims")
			}
		})
	}
}

func TestParseExpiredWithBadSignatureIsInvalid(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	past := gjwt.NewNumericDate(clock.now.Add(-time.Hour))
	forged := signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "ann@x.com", ExpiresAt: past}}, []byte("another-secret-another-secret-000"))

	if _, err := m.Parse(forged); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected signature check before expiry, got %v", err)
	}
}

func TestParseIssuerAndLeeway(t *testing.T) {
	clock := newFakeClock()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Issuer:     "tokenauth",
		Leeway:     30 * time.Second,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	clock.Advance(time.Minute + 10*time.Second)
	if _, err := m.Parse(tok.Value); err != nil {
		t.Fatalf("expected token within leeway to parse: %v", err)
	}

	wrongIssuer := signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "ann@x.com",
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}, testSecret)
	if _, err := m.Parse(wrongIssuer); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected wrong issuer to be invalid, got %v", err)
	}

	expiredWrongIssuer := signRaw(t, gjwt.SigningMethodHS256, Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "ann@x.com",
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(-time.Hour)),
	}}, testSecret)
	if _, err := m.Parse(expiredWrongIssuer); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected expired token with wrong issuer to be invalid, got %v", err)
	}
}

func TestRemainingValidity(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock)

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	clock.Advance(10 * time.Minute)
	got, err := m.RemainingValidity(tok.Value)
	if err != nil {
		t.Fatalf("remaining validity: %v", err)
	}
	if got != 20*time.Minute {
		t.Fatalf("expected 20m remaining, got %v", got)
	}

	clock.Advance(time.Hour)
	got, err = m.RemainingValidity(tok.Value)
	if err != nil {
		t.Fatalf("remaining validity on expired token must not fail: %v", err)
	}
	if got > 0 {
		t.Fatalf("expected non-positive remaining validity, got %v", got)
	}

	if _, err := m.RemainingValidity("garbage"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for garbage, got %v", err)
	}
}

func TestRemainingValidityIncludesLeeway(t *testing.T) {
	clock := newFakeClock()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Leeway:     30 * time.Second,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.CreateAccess("ann@x.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	clock.Advance(50 * time.Second)
	got, err := m.RemainingValidity(tok.Value)
	if err != nil || got != 40*time.Second {
		t.Fatalf("expected 40s remaining before exp, got %v, %v", got, err)
	}

	// Past exp but inside leeway: Parse still accepts, so remaining must stay positive.
	clock.Advance(20 * time.Second)
	if _, err := m.Parse(tok.Value); err != nil {
		t.Fatalf("expected token inside leeway to parse: %v", err)
	}
	got, err = m.RemainingValidity(tok.Value)
	if err != nil || got != 20*time.Second {
		t.Fatalf("expected 20s remaining inside leeway, got %v, %v", got, err)
	}

	clock.Advance(30 * time.Second)
	if _, err := m.Parse(tok.Value); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past leeway, got %v", err)
	}
	got, err = m.RemainingValidity(tok.Value)
	if err != nil || got > 0 {
		t.Fatalf("expected non-positive remaining past leeway, got %v, %v", got, err)
	}
}

func TestCreateAccessRequiresAuthorities(t *testing.T) {
	m := newTestManager(t, newFakeClock())
	if _, err := m.CreateAccess("ann@x.com", nil); err == nil {
		t.Fatal("expected access token without authorities to be rejected")
	}
	if _, err := m.CreateRefresh(""); err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("expected subject error, got %v", err)
	}
}

func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}
