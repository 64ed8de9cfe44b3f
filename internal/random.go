package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const stateSize = 32

// NewState returns an unguessable base64url value for the OAuth state parameter.
func NewState() (string, error) {
	var raw [stateSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidState reports whether s has the shape produced by NewState.
func ValidState(s string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(raw) == stateSize
}

// ErrStateMismatch is returned when an OAuth callback state does not match the issued one.
var ErrStateMismatch = errors.New("oauth state mismatch")
