// handler.go -- Host endpoints around the JetPass sign-in flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MGallo-Code/jetpass/internal/jetpass"
	"github.com/MGallo-Code/jetpass/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// SessionCache defines session cache operations needed by auth handlers.
// Satisfied by *store.RedisStore; defined here (at consumer) per Go convention.
type SessionCache interface {
	// SetSession caches a session under its token hash for ttl.
	SetSession(ctx context.Context, tokenHash string, sess store.Session, ttl time.Duration) error

	// GetSession returns the cached session or store.ErrCacheMiss.
	GetSession(ctx context.Context, tokenHash string) (*store.Session, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, tokenHash string) error

	// CheckHealth pings the cache.
	CheckHealth(ctx context.Context) error
}

// IdentityStore defines database operations needed by auth handlers.
// Satisfied by *store.PostgresStore.
type IdentityStore interface {
	// UpsertIdentity records a sign-in for (provider, subject) and returns the user id.
	UpsertIdentity(ctx context.Context, provider, subject string, name *string, emails []string) (uuid.UUID, error)

	// GetUserByID fetches a user; wraps pgx.ErrNoRows when absent.
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)

	// CheckHealth pings the database.
	CheckHealth(ctx context.Context) error
}

// AuthHandler holds dependencies for the host handlers and middleware.
// JetPass is set after construction because its options point back at the handler
// as the sign-in manager.
type AuthHandler struct {
	IS         IdentityStore
	RS         SessionCache
	SessionTTL time.Duration
	JetPass    *jetpass.Handler
}

// Login handles GET /login -- starts a JetPass challenge.
// return_url must be a local path and defaults to "/"; login_hint is passed to the hub.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props := jetpass.NewProperties()
	props.RedirectURI = localReturnURL(q.Get("return_url"))
	if hint := strings.TrimSpace(q.Get("login_hint")); hint != "" {
		props.Set(jetpass.ParamLoginHint, hint)
	}
	logInfo(r, "login challenge", "return_url", props.RedirectURI)
	h.JetPass.Challenge(w, r, props)
}

// localReturnURL returns raw when it is a path on this host, otherwise "/".
// Rejects absolute URLs, scheme-relative "//host" and backslash tricks.
func localReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsRune(raw, '\\') {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}

// Me handles GET /me -- returns the signed-in user.
// Requires RequireAuth to have run.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		InternalServerError(w, r, errors.New("session missing from context"))
		return
	}

	user, err := h.IS.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logWarn(r, "session refers to unknown user", "user_id", sess.UserID)
			Unauthorized(w, r, "unauthorized")
			return
		}
		InternalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		UserID             uuid.UUID     `json:"user_id"`
		Provider           string        `json:"provider"`
		Subject            string        `json:"subject"`
		Name               *string       `json:"name"`
		Email              *string       `json:"email"`
		AuthenticationType string        `json:"authentication_type"`
		Claims             []store.Claim `json:"claims"`
		ExpiresAt          time.Time     `json:"expires_at"`
	}{user.ID, user.Provider, user.Subject, user.Name, user.Email, sess.AuthenticationType, sess.Claims, sess.ExpiresAt})
}

// Logout handles POST /logout -- deletes the session and clears the cookie.
// Requires RequireAuth to have run.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenHash, ok := TokenHashFromContext(r.Context())
	if !ok {
		InternalServerError(w, r, errors.New("token hash missing from context"))
		return
	}
	if err := h.RS.DeleteSession(r.Context(), tokenHash); err != nil {
		InternalServerError(w, r, err)
		return
	}
	ClearSessionCookie(w)
	if sess, ok := SessionFromContext(r.Context()); ok {
		logInfo(r, "user logged out", "user_id", sess.UserID)
	}
	OK(w, "logged out")
}
