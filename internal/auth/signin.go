// signin.go -- Establishes a host session for an identity returned by JetPass.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MGallo-Code/jetpass/internal/jetpass"
	"github.com/MGallo-Code/jetpass/internal/store"
)

// ErrNoSubject is returned by SignIn when the identity carries no NameIdentifier claim.
var ErrNoSubject = errors.New("identity has no subject")

var _ jetpass.SignInManager = (*AuthHandler)(nil)

// SignIn implements jetpass.SignInManager. It records the identity in Postgres,
// caches a new session in Redis and sets the __Host-session cookie.
//
// The provider key is the issuer of the NameIdentifier claim, which survives the
// re-tagging of the identity's authentication type.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request, identity *jetpass.Identity, _ *jetpass.Properties) error {
	provider, subject := subjectOf(identity)
	if subject == "" {
		return ErrNoSubject
	}

	var name *string
	if n := identity.Name(); n != "" {
		name = &n
	}
	emails := identity.Values(jetpass.ClaimEmail)

	userID, err := h.IS.UpsertIdentity(r.Context(), provider, subject, name, emails)
	if err != nil {
		return fmt.Errorf("recording identity: %w", err)
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return err
	}

	ttl := h.sessionTTL()
	expiresAt := time.Now().Add(ttl)
	sess := store.Session{
		UserID:             userID,
		AuthenticationType: identity.AuthenticationType,
		Name:               identity.Name(),
		Emails:             emails,
		Claims:             make([]store.Claim, 0, len(identity.Claims)),
		ExpiresAt:          expiresAt,
	}
	for _, c := range identity.Claims {
		sess.Claims = append(sess.Claims, store.Claim{Type: c.Type, Value: c.Value})
	}

	if err := h.RS.SetSession(r.Context(), cacheKey(hash[:]), sess, ttl); err != nil {
		return fmt.Errorf("caching session: %w", err)
	}
	SetSessionCookie(w, *token, expiresAt)

	logInfo(r, "session created", "user_id", userID, "provider", provider)
	return nil
}

// subjectOf returns the issuer and value of the identity's NameIdentifier claim.
func subjectOf(identity *jetpass.Identity) (provider, subject string) {
	for _, c := range identity.Claims {
		if c.Type == jetpass.ClaimNameIdentifier {
			provider = c.Issuer
			if provider == "" {
				provider = identity.AuthenticationType
			}
			return provider, c.Value
		}
	}
	return "", ""
}

// DefaultSessionTTL applies when AuthHandler.SessionTTL is unset.
const DefaultSessionTTL = 24 * time.Hour

func (h *AuthHandler) sessionTTL() time.Duration {
	if h.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return h.SessionTTL
}
