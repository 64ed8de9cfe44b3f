package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const maxUserInfoBytes = 1 << 20

var (
	// ErrExchange is returned when the provider rejects the authorization code.
	ErrExchange = errors.New("oauth code exchange failed")
	// ErrUserInfo is returned when the user-info endpoint cannot be read.
	ErrUserInfo = errors.New("oauth user info request failed")
)

// Well-known provider endpoints.
var (
	NaverEndpoint = oauth2.Endpoint{
		AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
		TokenURL:  "https://nid.naver.com/oauth2.0/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	KakaoEndpoint = oauth2.Endpoint{
		AuthURL:   "https://kauth.kakao.com/oauth/authorize",
		TokenURL:  "https://kauth.kakao.com/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
)

const (
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	NaverUserInfoURL  = "https://openapi.naver.com/v1/nid/me"
	KakaoUserInfoURL  = "https://kapi.kakao.com/v2/user/me"
)

// Config holds the client registration for one provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client // Optional custom HTTP client
}

// Client exchanges authorization codes for one provider.
type Client struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Spec describes a provider's endpoints and default scopes.
type Spec struct {
	Name          string
	Endpoint      oauth2.Endpoint
	UserInfoURL   string
	DefaultScopes []string
}

// NewGoogle creates a Google client.
func NewGoogle(cfg Config) (*Client, error) {
	return New(Spec{
		Name:          "google",
		Endpoint:      google.Endpoint,
		UserInfoURL:   GoogleUserInfoURL,
		DefaultScopes: []string{"openid", "email", "profile"},
	}, cfg)
}

// NewNaver creates a Naver client.
func NewNaver(cfg Config) (*Client, error) {
	return New(Spec{
		Name:        "naver",
		Endpoint:    NaverEndpoint,
		UserInfoURL: NaverUserInfoURL,
	}, cfg)
}

// NewKakao creates a Kakao client.
func NewKakao(cfg Config) (*Client, error) {
	return New(Spec{
		Name:          "kakao",
		Endpoint:      KakaoEndpoint,
		UserInfoURL:   KakaoUserInfoURL,
		DefaultScopes: []string{"account_email", "profile_nickname", "profile_image"},
	}, cfg)
}

// New creates a client for spec. The provider name must be one identity.Normalize understands.
func New(spec Spec, cfg Config) (*Client, error) {
	if _, err := identity.ParseProvider(spec.Name); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%s: client ID is required", spec.Name)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: client secret is required", spec.Name)
	}
	if spec.UserInfoURL == "" {
		return nil, fmt.Errorf("%s: user info URL is required", spec.Name)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = spec.DefaultScopes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &Client{
		name: strings.ToLower(spec.Name),
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     spec.Endpoint,
		},
		userInfoURL: spec.UserInfoURL,
		httpClient:  httpClient,
	}, nil
}

// Name returns the lower-case provider name.
func (c *Client) Name() string {
	return c.name
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a provider access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrExchange)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return token, nil
}

// UserInfo fetches the raw user-info document with token.
func (c *Client) UserInfo(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := c.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	return raw, nil
}

// FetchUserInfo exchanges code and returns the raw user-info document.
func (c *Client) FetchUserInfo(ctx context.Context, code string) ([]byte, error) {
	token, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.UserInfo(ctx, token)
}

// Registry resolves provider clients by case-insensitive name.
type Registry struct {
	clients map[string]*Client
}

func NewRegistry(clients ...*Client) *Registry {
	r := &Registry{clients: make(map[string]*Client, len(clients))}
	for _, c := range clients {
		if c != nil {
			r.clients[c.name] = c
		}
	}
	return r
}

// Get returns the client for name or an error wrapping identity.ErrUnsupportedProvider.
func (r *Registry) Get(name string) (*Client, error) {
	if r != nil {
		if c, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q not configured", identity.ErrUnsupportedProvider, name)
}

// Names returns the configured provider names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
