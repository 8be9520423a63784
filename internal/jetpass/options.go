// options.go -- Handler configuration and defaults.
package jetpass

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults applied by New.
const (
	DefaultAuthenticationType         = "JetPass"
	DefaultCallbackPath               = "/JetPass"
	DefaultSignInAsAuthenticationType = "session"
	DefaultBackchannelTimeout         = 60 * time.Second
	DefaultCorrelationCookieTTL       = 10 * time.Minute
	DefaultRootURL                    = "https://hub.jetbrains.com"
)

// MandatoryScope is always appended to the requested scopes; it grants access to
// the user-info endpoint.
const MandatoryScope = "0-0-0-0-0"

// Endpoints are the three provider URLs used by the flow.
type Endpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
}

// DefaultEndpoints returns the endpoints of the public hub.
func DefaultEndpoints() Endpoints {
	ep, _ := EndpointsForRoot(DefaultRootURL)
	return ep
}

// EndpointsForRoot appends the standard endpoint paths to a provider root URL. A
// root with a path, such as a hub installed under /hub, keeps it. This differs from
// resolving the root-relative paths "/rest/..." against the root, which would drop
// /hub; pass the host alone (or set Endpoints directly) to get that behavior.
// Query and fragment are discarded.
func EndpointsForRoot(root string) (Endpoints, error) {
	base, err := url.Parse(root)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parsing provider root %q: %w", root, err)
	}
	if !base.IsAbs() {
		return Endpoints{}, fmt.Errorf("provider root %q is not absolute", root)
	}
	base.RawQuery, base.Fragment = "", ""
	return Endpoints{
		AuthorizationEndpoint: base.JoinPath("rest/oauth2/auth").String(),
		TokenEndpoint:         base.JoinPath("rest/oauth2/token").String(),
		UserInfoEndpoint:      base.JoinPath("rest/users/me").String(),
	}, nil
}

// Options configures a Handler. ClientID and ClientSecret are required; everything
// else has a default.
type Options struct {
	ClientID     string
	ClientSecret string

	// Endpoints default to DefaultEndpoints. Empty fields are filled individually.
	Endpoints Endpoints

	// CallbackPath is where the provider sends the user agent back. Default "/JetPass".
	CallbackPath string

	// BasePath is the prefix the handler is mounted under, prepended to CallbackPath.
	BasePath string

	// Scope lists the scopes to request. MandatoryScope is appended on every challenge.
	Scope []string

	// BackchannelTimeout bounds each token and user-info call. Default 60s.
	BackchannelTimeout time.Duration

	// BackchannelTransport replaces the default transport for backchannel calls.
	BackchannelTransport http.RoundTripper

	// BackchannelCertificateValidator, when set, is installed on the transport's TLS
	// config. The transport must then be an *http.Transport (or nil).
	BackchannelCertificateValidator CertificateValidator

	// AuthenticationType tags identities and correlation state. Default "JetPass".
	AuthenticationType string

	// Caption is the display text for sign-in UIs. Defaults to AuthenticationType.
	Caption string

	// SignInAsAuthenticationType is the type identities are re-tagged with before
	// SignIn is called. Defaults to "session" when SignIn is set.
	SignInAsAuthenticationType string

	// SignIn establishes the host session. Nil means identities are not signed in.
	SignIn SignInManager

	// Provider receives the flow's hooks. Default DefaultProvider.
	Provider Provider

	// StateCodec protects the state parameter. Default is a JOSECodec with a
	// per-process random key.
	StateCodec StateCodec

	// CorrelationCookieTTL is the lifetime of the correlation cookie. Default 10m.
	CorrelationCookieTTL time.Duration

	// TrustForwardedProto makes the handler honor X-Forwarded-Proto when building
	// absolute URLs. Enable only behind a proxy that sets it.
	TrustForwardedProto bool
}

// validate checks required fields.
func (o *Options) validate() error {
	if strings.TrimSpace(o.ClientID) == "" {
		return fmt.Errorf("%w: ClientID", ErrMissingOption)
	}
	if strings.TrimSpace(o.ClientSecret) == "" {
		return fmt.Errorf("%w: ClientSecret", ErrMissingOption)
	}
	return nil
}

// applyDefaults fills unset fields.
func (o *Options) applyDefaults() {
	def := DefaultEndpoints()
	if o.Endpoints.AuthorizationEndpoint == "" {
		o.Endpoints.AuthorizationEndpoint = def.AuthorizationEndpoint
	}
	if o.Endpoints.TokenEndpoint == "" {
		o.Endpoints.TokenEndpoint = def.TokenEndpoint
	}
	if o.Endpoints.UserInfoEndpoint == "" {
		o.Endpoints.UserInfoEndpoint = def.UserInfoEndpoint
	}
	if o.CallbackPath == "" {
		o.CallbackPath = DefaultCallbackPath
	}
	if !strings.HasPrefix(o.CallbackPath, "/") {
		o.CallbackPath = "/" + o.CallbackPath
	}
	o.BasePath = strings.TrimSuffix(o.BasePath, "/")
	if o.BackchannelTimeout <= 0 {
		o.BackchannelTimeout = DefaultBackchannelTimeout
	}
	if o.AuthenticationType == "" {
		o.AuthenticationType = DefaultAuthenticationType
	}
	if o.Caption == "" {
		o.Caption = o.AuthenticationType
	}
	if o.SignIn != nil && o.SignInAsAuthenticationType == "" {
		o.SignInAsAuthenticationType = DefaultSignInAsAuthenticationType
	}
	if o.Provider == nil {
		o.Provider = &DefaultProvider{}
	}
	if o.CorrelationCookieTTL <= 0 {
		o.CorrelationCookieTTL = DefaultCorrelationCookieTTL
	}
}

// StatePurpose is the purpose a state codec for authType is bound to. Hosts that
// build their own JOSECodec pass it so states from other handlers are rejected.
func StatePurpose(authType string) string {
	return "jetpass-state:" + authType + ":v1"
}
