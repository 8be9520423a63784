// Package jetpass implements the server side of the OAuth 2.0 authorization code
// flow against a JetPass hub: the challenge redirect, the callback that exchanges the
// code and fetches the profile, and the mapping of that profile into claims.
//
// handler.go -- Handler construction and request routing.
package jetpass

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// correlationCookie holds the correlation id between the challenge and the callback.
const correlationCookie = "__Host-jetpass-correlation"

// Handler runs the flow. Safe for concurrent use; all per-attempt data lives on the
// request.
type Handler struct {
	opts        Options
	backchannel *http.Client
	tokenClient *http.Client
}

// New validates opts, applies defaults and builds the shared backchannel client.
// A blank ClientID or ClientSecret is returned as ErrMissingOption so a
// misconfigured host fails at startup.
func New(opts Options) (*Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	client, err := newBackchannelClient(opts.BackchannelTransport, opts.BackchannelCertificateValidator, opts.BackchannelTimeout)
	if err != nil {
		return nil, err
	}

	if opts.StateCodec == nil {
		codec, err := newEphemeralCodec(StatePurpose(opts.AuthenticationType))
		if err != nil {
			return nil, err
		}
		slog.Warn("jetpass: no state codec configured, using a per-process key",
			"authentication_type", opts.AuthenticationType)
		opts.StateCodec = codec
	}

	return &Handler{opts: opts, backchannel: client, tokenClient: newTokenClient(client, opts.ClientID, opts.ClientSecret)}, nil
}

// Options returns the effective options after defaults.
func (h *Handler) Options() Options { return h.opts }

// CallbackPath is the request path the handler answers, including BasePath.
func (h *Handler) CallbackPath() string { return h.opts.BasePath + h.opts.CallbackPath }

// Middleware answers callback requests and passes everything else to next.
// A callback whose response was not completed also falls through.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == h.CallbackPath() && h.HandleCallback(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP answers the callback path only; anything else is 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)
}

// --- URLs ---

// requestScheme returns the scheme the user agent used to reach us.
func (h *Handler) requestScheme(r *http.Request) string {
	if h.opts.TrustForwardedProto {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// callbackURL is the fixed redirect_uri sent to the provider. The token request
// must repeat it exactly.
func (h *Handler) callbackURL(r *http.Request) string {
	return h.requestScheme(r) + "://" + r.Host + h.CallbackPath()
}

// currentURL is the absolute URL of r, the default return target of a challenge.
func (h *Handler) currentURL(r *http.Request) string {
	return h.requestScheme(r) + "://" + r.Host + r.URL.RequestURI()
}

// --- Correlation ---

// generateCorrelationID stores a fresh random id in props and in the correlation cookie.
func (h *Handler) generateCorrelationID(w http.ResponseWriter, props *Properties) error {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Errorf("generating correlation id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(b[:])
	props.Set(correlationKey, id)
	http.SetCookie(w, &http.Cookie{
		Name:     correlationCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.CorrelationCookieTTL.Seconds()),
	})
	return nil
}

// validateCorrelationID consumes the correlation cookie and compares it with the id in
// props. The cookie is expired whatever the outcome so it cannot be replayed.
func validateCorrelationID(w http.ResponseWriter, r *http.Request, props *Properties) error {
	cookie, err := r.Cookie(correlationCookie)
	if err != nil || cookie.Value == "" {
		return fmt.Errorf("%w: cookie not found", ErrCorrelation)
	}
	clearCorrelationCookie(w)

	want, ok := props.Take(correlationKey)
	if !ok || want == "" {
		return fmt.Errorf("%w: state carries no correlation id", ErrCorrelation)
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(cookie.Value)) != 1 {
		return fmt.Errorf("%w: mismatch", ErrCorrelation)
	}
	return nil
}

// clearCorrelationCookie expires the correlation cookie immediately.
func clearCorrelationCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     correlationCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
