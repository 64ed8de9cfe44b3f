package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/provider"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/cors"
)

// serverEnv holds raw env values for the server process.
type serverEnv struct {
	HTTPAddr string `env:"TOKENAUTH_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"TOKENAUTH_LOG_LEVEL" envDefault:"info"`

	JWTSecret         string `env:"TOKENAUTH_JWT_SECRET"`
	JWTIssuer         string `env:"TOKENAUTH_JWT_ISSUER"`
	AccessTTLSeconds  int    `env:"TOKENAUTH_ACCESS_TTL_SECONDS"  envDefault:"1800"`
	RefreshTTLSeconds int    `env:"TOKENAUTH_REFRESH_TTL_SECONDS" envDefault:"1209600"`
	CASRotation       bool   `env:"TOKENAUTH_CAS_ROTATION"`

	RedisAddr     string `env:"TOKENAUTH_REDIS_ADDR"`
	RedisPassword string `env:"TOKENAUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"TOKENAUTH_REDIS_DB"`
	SQLitePath    string `env:"TOKENAUTH_SQLITE_PATH"`

	CORSOrigins []string `env:"TOKENAUTH_CORS_ORIGINS" envSeparator:","`

	CookieDomain   string `env:"TOKENAUTH_COOKIE_DOMAIN"`
	CookieInsecure bool   `env:"TOKENAUTH_COOKIE_INSECURE"`

	RedirectURL     string `env:"TOKENAUTH_OAUTH_REDIRECT_URL"      envDefault:"/"`
	CallbackBaseURL string `env:"TOKENAUTH_OAUTH_CALLBACK_BASE_URL" envDefault:"http://localhost:8080"`

	GoogleClientID     string `env:"TOKENAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"TOKENAUTH_GOOGLE_CLIENT_SECRET"`
	NaverClientID      string `env:"TOKENAUTH_NAVER_CLIENT_ID"`
	NaverClientSecret  string `env:"TOKENAUTH_NAVER_CLIENT_SECRET"`
	KakaoClientID      string `env:"TOKENAUTH_KAKAO_CLIENT_ID"`
	KakaoClientSecret  string `env:"TOKENAUTH_KAKAO_CLIENT_SECRET"`

	DevLogin bool `env:"TOKENAUTH_DEV_LOGIN"`
	AuditLog bool `env:"TOKENAUTH_AUDIT_LOG" envDefault:"true"`
}

func loadEnv() (serverEnv, error) {
	var raw serverEnv
	if err := env.Parse(&raw); err != nil {
		return serverEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return raw, nil
}

func (e serverEnv) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", e.LogLevel, err)
	}
	return level, nil
}

// engineConfig overlays env values on tokenauth.DefaultConfig. The result is
// validated by the builder.
func (e serverEnv) engineConfig() tokenauth.Config {
	cfg := tokenauth.DefaultConfig()
	cfg.JWT.Secret = []byte(e.JWTSecret)
	cfg.JWT.Issuer = e.JWTIssuer
	cfg.JWT.AccessTTL = time.Duration(e.AccessTTLSeconds) * time.Second
	cfg.JWT.RefreshTTL = time.Duration(e.RefreshTTLSeconds) * time.Second
	cfg.Store.CompareAndSwapRotation = e.CASRotation
	cfg.Cookie.Domain = e.CookieDomain
	if e.CookieInsecure {
		cfg.Cookie.Secure = false
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}
	cfg.OAuth.RedirectURL = e.RedirectURL
	cfg.DevLogin.Enabled = e.DevLogin
	cfg.Audit.Enabled = e.AuditLog
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// providers builds a client for every provider with a client id set.
func (e serverEnv) providers() ([]*provider.Client, error) {
	base := strings.TrimRight(e.CallbackBaseURL, "/")
	callback := func(name string) string { return base + "/login/oauth2/code/" + name }

	type entry struct {
		name, id, secret string
		build            func(provider.Config) (*provider.Client, error)
	}
	entries := []entry{
		{"google", e.GoogleClientID, e.GoogleClientSecret, provider.NewGoogle},
		{"naver", e.NaverClientID, e.NaverClientSecret, provider.NewNaver},
		{"kakao", e.KakaoClientID, e.KakaoClientSecret, provider.NewKakao},
	}

	var clients []*provider.Client
	for _, en := range entries {
		if en.id == "" {
			continue
		}
		c, err := en.build(provider.Config{
			ClientID:     en.id,
			ClientSecret: en.secret,
			RedirectURL:  callback(en.name),
		})
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// middlewares returns the request middlewares implied by the env. Reissue
// answers in the Authorization header, so it is exposed to browser clients.
func (e serverEnv) middlewares() []func(http.Handler) http.Handler {
	if len(e.CORSOrigins) == 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{
		cors.Handler(cors.Options{
			AllowedOrigins:   e.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	}
}
