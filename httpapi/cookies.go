package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 5 * time.Minute
	callbackPath    = "/login/oauth2/code"
)

func setRefreshCookie(w http.ResponseWriter, cfg tokenauth.Config, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    token,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		MaxAge:   int(cfg.JWT.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
	})
}

func clearRefreshCookie(w http.ResponseWriter, cfg tokenauth.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    "",
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
	})
}

func setStateCookie(w http.ResponseWriter, cfg tokenauth.Config, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     callbackPath,
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearStateCookie(w http.ResponseWriter, cfg tokenauth.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     callbackPath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
