// Package httpapi mounts the tokenauth HTTP surface on a chi router: OAuth2
// login, refresh token reissue, logout, dev login and the current-user
// endpoint.
//
// The refresh token only ever travels in an HttpOnly cookie. Response bodies
// carry access tokens inside the standard envelope from httpapi/response.
package httpapi
