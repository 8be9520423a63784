// provider.go -- Hooks a host can supply to observe or change each stage of the flow.
package jetpass

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Provider receives the flow's events.
type Provider interface {
	// Authenticated runs after the identity is built and before the ticket is
	// returned. It may edit ctx.Identity and ctx.Properties in place.
	Authenticated(ctx context.Context, ac *AuthenticatedContext) error

	// ReturnEndpoint runs on the callback request before sign-in and the final
	// redirect. Calling rc.RequestCompleted suppresses the redirect.
	ReturnEndpoint(ctx context.Context, rc *ReturnEndpointContext) error

	// ApplyRedirect runs when a challenge is ready to send the user agent to the
	// authorization endpoint. It may change rc.RedirectURI or answer the request
	// itself; if rc.Redirect is never called the handler redirects.
	ApplyRedirect(rc *ApplyRedirectContext)
}

// SignInManager establishes the host session for a signed-in identity.
type SignInManager interface {
	SignIn(w http.ResponseWriter, r *http.Request, identity *Identity, props *Properties) error
}

// DefaultProvider is a Provider built from optional functions. Nil fields keep the
// default behavior: no-op for the async hooks, redirect for ApplyRedirect.
type DefaultProvider struct {
	OnAuthenticated  func(ctx context.Context, ac *AuthenticatedContext) error
	OnReturnEndpoint func(ctx context.Context, rc *ReturnEndpointContext) error
	OnApplyRedirect  func(rc *ApplyRedirectContext)
}

var _ Provider = (*DefaultProvider)(nil)

// Authenticated implements Provider.
func (p *DefaultProvider) Authenticated(ctx context.Context, ac *AuthenticatedContext) error {
	if p.OnAuthenticated == nil {
		return nil
	}
	return p.OnAuthenticated(ctx, ac)
}

// ReturnEndpoint implements Provider.
func (p *DefaultProvider) ReturnEndpoint(ctx context.Context, rc *ReturnEndpointContext) error {
	if p.OnReturnEndpoint == nil {
		return nil
	}
	return p.OnReturnEndpoint(ctx, rc)
}

// ApplyRedirect implements Provider.
func (p *DefaultProvider) ApplyRedirect(rc *ApplyRedirectContext) {
	if p.OnApplyRedirect == nil {
		rc.Redirect()
		return
	}
	p.OnApplyRedirect(rc)
}

// AuthenticatedContext carries everything learned during a successful callback.
type AuthenticatedContext struct {
	Request *http.Request

	// User is the raw user-info document.
	User         json.RawMessage
	AccessToken  string
	RefreshToken string
	// ExpiresIn is nil when the token response had no usable expires_in.
	ExpiresIn *time.Duration

	ID     string
	Name   string
	Emails []string

	Identity   *Identity
	Properties *Properties
}

// ReturnEndpointContext is handed to Provider.ReturnEndpoint.
type ReturnEndpointContext struct {
	Writer  http.ResponseWriter
	Request *http.Request

	// Identity is nil when authentication failed.
	Identity   *Identity
	Properties *Properties

	SignInAsAuthenticationType string
	RedirectURI                string

	completed bool
}

// RequestCompleted marks the response as fully written.
func (rc *ReturnEndpointContext) RequestCompleted() { rc.completed = true }

// IsRequestCompleted reports whether the response was already written.
func (rc *ReturnEndpointContext) IsRequestCompleted() bool { return rc.completed }

// ApplyRedirectContext is handed to Provider.ApplyRedirect.
type ApplyRedirectContext struct {
	Writer     http.ResponseWriter
	Request    *http.Request
	Properties *Properties

	// RedirectURI is the fully assembled authorization URL.
	RedirectURI string

	redirected bool
}

// Redirect sends a 302 to RedirectURI and marks the challenge as answered.
func (rc *ApplyRedirectContext) Redirect() {
	http.Redirect(rc.Writer, rc.Request, rc.RedirectURI, http.StatusFound)
	rc.redirected = true
}

// Handled marks the challenge as answered without redirecting, for hooks that
// write their own response.
func (rc *ApplyRedirectContext) Handled() { rc.redirected = true }
