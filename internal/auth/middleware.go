// middleware.go

// Session authentication middleware.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/MGallo-Code/jetpass/internal/jetpass"
	"github.com/MGallo-Code/jetpass/internal/store"
)

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const sessionKey contextKey = "session"
const tokenHashKey contextKey = "token_hash"

// SessionFromContext retrieves the authenticated session.
// Returns nil and false if RequireAuth hasn't run.
func SessionFromContext(ctx context.Context) (*store.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*store.Session)
	return s, ok
}

// TokenHashFromContext retrieves the session cache key.
// Returns "" and false if RequireAuth hasn't run.
func TokenHashFromContext(ctx context.Context) (string, bool) {
	hash, ok := ctx.Value(tokenHashKey).(string)
	return hash, ok
}

// RequireAuth validates the session cookie against the cache.
// Without a valid session, GET and HEAD requests are challenged and return to the
// same URL after sign-in; any other method gets 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenHash, err := tokenHashFromRequest(r)
		if err != nil {
			logDebug(r, "require auth failed", "reason", err.Error())
			h.unauthenticated(w, r)
			return
		}

		sess, err := h.RS.GetSession(r.Context(), tokenHash)
		if err != nil {
			if errors.Is(err, store.ErrCacheMiss) {
				logWarn(r, "require auth failed", "reason", "session_not_found")
				ClearSessionCookie(w)
				h.unauthenticated(w, r)
				return
			}
			InternalServerError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, tokenHashKey, tokenHash)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unauthenticated challenges safe requests and rejects the rest.
func (h *AuthHandler) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if h.JetPass != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		props := jetpass.NewProperties()
		props.RedirectURI = localReturnURL(r.URL.RequestURI())
		h.JetPass.Challenge(w, r, props)
		return
	}
	Unauthorized(w, r, "unauthorized")
}
