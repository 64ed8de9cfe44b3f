package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi/response"
	"github.com/MrEthical07/tokenauth/identity"
	"github.com/MrEthical07/tokenauth/provider"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const kakaoBody = `{"id":4242,"kakao_account":{"email":"k@example.com","profile":{"nickname":"Kim"}}}`

type apiFixture struct {
	router chi.Router
	engine *tokenauth.Engine
	mr     *miniredis.Miniredis
}

func newFakeKakao(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"provider-at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kakaoBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAPIFixture(t *testing.T, devLogin bool) *apiFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("s", 32))
	cfg.OAuth.RedirectURL = "https://app.example.com/welcome"
	cfg.DevLogin.Enabled = devLogin

	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityStore(identity.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	srv := newFakeKakao(t)
	kakao, err := provider.New(provider.Spec{
		Name: "kakao",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/authorize",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/me",
	}, provider.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/login/oauth2/code/kakao",
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &apiFixture{
		router: NewRouter(Options{Engine: engine, Providers: provider.NewRegistry(kakao)}),
		engine: engine,
		mr:     mr,
	}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, result any) response.Envelope {
	t.Helper()
	var raw struct {
		response.Envelope
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	if result != nil && len(raw.Result) > 0 {
		if err := json.Unmarshal(raw.Result, result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
	return raw.Envelope
}

// login walks the authorization redirect and the callback and returns the refresh cookie.
func (f *apiFixture) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/oauth2/authorization/kakao", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize status %d", rec.Code)
	}
	stateCookie := findCookie(rec, stateCookieName)
	if stateCookie == nil || !stateCookie.HttpOnly {
		t.Fatalf("expected HttpOnly state cookie, got %+v", stateCookie)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Query().Get("state") != stateCookie.Value {
		t.Fatalf("state in redirect does not match cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=good-code&state="+url.QueryEscape(stateCookie.Value), nil)
	req.AddCookie(stateCookie)
	rec = f.do(req)
	if rec.Code != http.StatusFound {
		t.Fatalf("callback status %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "https://app.example.com/welcome" {
		t.Fatalf("unexpected redirect %q", got)
	}
	refresh := findCookie(rec, "refresh_token")
	if refresh == nil || refresh.Value == "" {
		t.Fatalf("expected refresh cookie")
	}
	if !refresh.HttpOnly || !refresh.Secure || refresh.Path != "/api/v1/auth" || refresh.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected refresh cookie attributes %+v", refresh)
	}
	if refresh.MaxAge != int((14 * 24 * 60 * 60)) {
		t.Fatalf("unexpected refresh cookie max age %d", refresh.MaxAge)
	}
	return refresh
}

func (f *apiFixture) reissue(t *testing.T, refresh *http.Cookie) (*httptest.ResponseRecorder, AccessTokenResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reissue", nil)
	if refresh != nil {
		req.AddCookie(refresh)
	}
	rec := f.do(req)
	var result AccessTokenResult
	decodeEnvelope(t, rec, &result)
	return rec, result
}

func TestOAuthLoginReissueMeLogout(t *testing.T) {
	f := newAPIFixture(t, false)
	refresh := f.login(t)

	stored, err := f.mr.Get("refresh_token:k@example.com")
	if err != nil || stored != refresh.Value {
		t.Fatalf("stored refresh token does not match cookie: %v", err)
	}

	rec, result := f.reissue(t, refresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("reissue status %d body=%s", rec.Code, rec.Body.String())
	}
	if result.AccessToken == "" || rec.Header().Get("Authorization") != "Bearer "+result.AccessToken {
		t.Fatalf("expected bearer header to carry the new access token")
	}
	if strings.Contains(rec.Body.String(), "refreshToken") {
		t.Fatalf("refresh token leaked into body: %s", rec.Body.String())
	}
	rotated := findCookie(rec, "refresh_token")
	if rotated == nil || rotated.Value == refresh.Value {
		t.Fatalf("expected rotated refresh cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec = f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d body=%s", rec.Code, rec.Body.String())
	}
	var user UserResult
	env := decodeEnvelope(t, rec, &user)
	if !env.IsSuccess || env.Code != response.SuccessCode {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if user.Email != "k@example.com" || user.Name != "Kim" || user.Role != "USER" || user.Provider != "KAKAO" {
		t.Fatalf("unexpected user %+v", user)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec = f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status %d body=%s", rec.Code, rec.Body.String())
	}
	cleared := findCookie(rec, "refresh_token")
	if cleared == nil || cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("expected cleared refresh cookie, got %+v", cleared)
	}
	if f.mr.Exists("refresh_token:k@example.com") {
		t.Fatalf("refresh token should be deleted on logout")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec = f.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rec.Code)
	}
}

func TestReissueReplayIsRejected(t *testing.T) {
	f := newAPIFixture(t, false)
	refresh := f.login(t)

	if rec, _ := f.reissue(t, refresh); rec.Code != http.StatusOK {
		t.Fatalf("first reissue status %d", rec.Code)
	}
	rec, _ := f.reissue(t, refresh)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on replay, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec, nil)
	if env.IsSuccess || env.Code != "AUTH4006" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if c := findCookie(rec, "refresh_token"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected refresh cookie to be cleared on replay")
	}
}

func TestReissueWithoutCookie(t *testing.T) {
	f := newAPIFixture(t, false)
	rec, _ := f.reissue(t, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec, nil); env.Code != "AUTH4007" {
		t.Fatalf("expected AUTH4007, got %s", env.Code)
	}
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	f := newAPIFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=good-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "other"})
	rec := f.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if findCookie(rec, "refresh_token") != nil {
		t.Fatalf("no refresh cookie may be set on failure")
	}
	if f.mr.Exists("refresh_token:k@example.com") {
		t.Fatalf("no refresh token may be stored on failure")
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	f := newAPIFixture(t, false)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/oauth2/authorization/kakao", nil))
	state := findCookie(rec, stateCookieName)

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/kakao?code=bad-code&state="+url.QueryEscape(state.Value), nil)
	req.AddCookie(state)
	rec = f.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec, nil); env.Code != "AUTH4001" {
		t.Fatalf("expected AUTH4001, got %s", env.Code)
	}
}

func TestUnknownProvider(t *testing.T) {
	f := newAPIFixture(t, false)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/oauth2/authorization/github", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec, nil); env.Code != "AUTH4010" {
		t.Fatalf("expected AUTH4010, got %s", env.Code)
	}
}

func TestLogoutRequiresBearer(t *testing.T) {
	f := newAPIFixture(t, false)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDevLogin(t *testing.T) {
	f := newAPIFixture(t, true)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/test/login?email=dev%40example.com", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("dev login status %d body=%s", rec.Code, rec.Body.String())
	}
	var result AccessTokenResult
	decodeEnvelope(t, rec, &result)
	if result.AccessToken == "" {
		t.Fatalf("expected access token in body")
	}
	if c := findCookie(rec, "refresh_token"); c == nil || c.Value == "" {
		t.Fatalf("expected refresh cookie")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/test/login?email=not-an-email", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}
}

func TestDevLoginNotMountedWhenDisabled(t *testing.T) {
	f := newAPIFixture(t, false)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/test/login?email=dev%40example.com", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
