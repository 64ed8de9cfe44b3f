package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi/response"
	"github.com/MrEthical07/tokenauth/internal"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/go-chi/chi/v5"
)

// AccessTokenResult is the body of reissue and dev login responses.
type AccessTokenResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"accessTokenExpiresAt"`
}

// UserResult is the body of the current-user response.
type UserResult struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
}

type devLoginQuery struct {
	Email string `validate:"required,email,max=254"`
}

// Authorize redirects to the provider consent page.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	client, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, err)
		return
	}
	state, err := internal.NewState()
	if err != nil {
		response.Error(w, err)
		return
	}
	setStateCookie(w, h.cfg, state)
	http.Redirect(w, r, client.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the authorization-code flow, stores the refresh token in
// a cookie and redirects to the configured target.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	client, err := h.providers.Get(name)
	if err != nil {
		response.Error(w, err)
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Info("oauth login declined", slog.String("provider", name), slog.String("error", e))
		response.Error(w, tokenauth.ErrUnauthorized)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	clearStateCookie(w, h.cfg)
	state := q.Get("state")
	if err != nil || !internal.ValidState(state) || cookie.Value != state {
		response.Error(w, fmt.Errorf("%w: %v", tokenauth.ErrUnauthorized, internal.ErrStateMismatch))
		return
	}

	ctx := middleware.WithClientIP(r)
	raw, err := client.FetchUserInfo(ctx, q.Get("code"))
	if err != nil {
		h.logger.Warn("oauth exchange failed", slog.String("provider", name), slog.Any("error", err))
		response.Error(w, tokenauth.ErrUnauthorized)
		return
	}

	res, err := h.engine.LoginWithProvider(ctx, name, raw)
	if err != nil {
		response.Error(w, err)
		return
	}

	setRefreshCookie(w, h.cfg, res.Tokens.RefreshToken)
	http.Redirect(w, r, h.cfg.OAuth.RedirectURL, http.StatusFound)
}

// Reissue rotates the refresh token cookie and returns a new access token.
func (h *Handler) Reissue(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cfg.Cookie.Name)
	if err != nil || cookie.Value == "" {
		response.Error(w, tokenauth.ErrRefreshMissing)
		return
	}

	pair, err := h.engine.Reissue(middleware.WithClientIP(r), cookie.Value)
	if err != nil {
		if errors.Is(err, tokenauth.ErrRefreshInvalid) || errors.Is(err, tokenauth.ErrRefreshExpired) {
			clearRefreshCookie(w, h.cfg)
		}
		response.Error(w, err)
		return
	}

	setRefreshCookie(w, h.cfg, pair.RefreshToken)
	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	response.OK(w, AccessTokenResult{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExpiresAt})
}

// Logout revokes the bearer access token and clears the refresh cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		response.Error(w, tokenauth.ErrUnauthorized)
		return
	}

	if err := h.engine.Logout(middleware.WithClientIP(r), token); err != nil {
		if errors.Is(err, tokenauth.ErrLogoutIncomplete) {
			clearRefreshCookie(w, h.cfg)
		}
		response.Error(w, err)
		return
	}

	clearRefreshCookie(w, h.cfg)
	response.OK(w, "logged out")
}

// DevLogin issues tokens for an email without a provider round trip.
func (h *Handler) DevLogin(w http.ResponseWriter, r *http.Request) {
	q := devLoginQuery{Email: r.URL.Query().Get("email")}
	if err := h.validate.Struct(q); err != nil {
		response.Error(w, fmt.Errorf("%w: %v", tokenauth.ErrInvalidInput, err))
		return
	}

	res, err := h.engine.DevLogin(middleware.WithClientIP(r), q.Email)
	if err != nil {
		response.Error(w, err)
		return
	}

	setRefreshCookie(w, h.cfg, res.Tokens.RefreshToken)
	response.OK(w, AccessTokenResult{AccessToken: res.Tokens.AccessToken, ExpiresAt: res.Tokens.AccessExpiresAt})
}

// Me returns the identity of the authenticated principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, tokenauth.ErrUnauthorized)
		return
	}

	id, err := h.engine.Identity(r.Context(), p.Subject)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, UserResult{
		Email:    id.Subject,
		Name:     id.DisplayName,
		Picture:  id.Picture,
		Role:     string(id.Role),
		Provider: string(id.Provider),
	})
}
