// session.go

// Session token generation and cookie management.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// sessionCookie is the host session cookie name.
const sessionCookie = "__Host-session"

// GenerateToken returns a 256-bit random session token and its SHA-256 hash.
// Token goes in the cookie; hash keys the cache entry.
func GenerateToken() (*[32]byte, *[32]byte, error) {
	var token [32]byte
	if _, err := rand.Read(token[:]); err != nil {
		return nil, nil, fmt.Errorf("generating session token: %w", err)
	}
	hash := sha256.Sum256(token[:])
	return &token, &hash, nil
}

// cacheKey encodes a token hash as the session cache key.
func cacheKey(hash []byte) string {
	return base64.RawURLEncoding.EncodeToString(hash)
}

// tokenHashFromRequest reads the session cookie and returns the cache key for it.
func tokenHashFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", errors.New("missing session cookie")
	}
	if c.Value == "" {
		return "", errors.New("empty session cookie")
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(raw) != 32 {
		return "", errors.New("invalid session cookie")
	}
	hash := sha256.Sum256(raw)
	return cacheKey(hash[:]), nil
}

// SetSessionCookie writes __Host-session with HttpOnly, Secure, SameSite=Lax.
func SetSessionCookie(w http.ResponseWriter, rawToken [32]byte, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    base64.RawURLEncoding.EncodeToString(rawToken[:]),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

// ClearSessionCookie overwrites __Host-session with MaxAge=-1 so the browser drops it.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
