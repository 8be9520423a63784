// challenge.go -- Builds the authorization redirect.
package jetpass

import (
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Authorize parameters a challenge may carry in its properties. Each is moved out of
// the properties into the authorization URL.
const (
	ParamScope          = "scope"
	ParamAccessType     = "access_type"
	ParamApprovalPrompt = "approval_prompt"
	ParamLoginHint      = "login_hint"
)

// oauthConfig returns the oauth2 view of the options for one request.
func (h *Handler) oauthConfig(callbackURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.opts.ClientID,
		ClientSecret: h.opts.ClientSecret,
		RedirectURL:  callbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   h.opts.Endpoints.AuthorizationEndpoint,
			TokenURL:  h.opts.Endpoints.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// requestedScopes returns the scopes for a challenge: the configured list (or the
// space-separated scope property, which replaces it) followed by MandatoryScope.
// Duplicates are kept as given.
func (h *Handler) requestedScopes(props *Properties) []string {
	scopes := append([]string(nil), h.opts.Scope...)
	if v, ok := props.Take(ParamScope); ok {
		scopes = strings.Fields(v)
	}
	return append(scopes, MandatoryScope)
}

// Challenge sends the user agent to the authorization endpoint. props may be nil;
// when its RedirectURI is empty the user returns to the current URL afterwards.
//
// Reads/writes on props: sets RedirectURI if empty, sets the correlation id, and
// removes scope, access_type, approval_prompt and login_hint.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request, props *Properties) {
	if props == nil {
		props = NewProperties()
	}
	if props.RedirectURI == "" {
		props.RedirectURI = h.currentURL(r)
	}

	if err := h.generateCorrelationID(w, props); err != nil {
		internalServerError(w, r, err)
		return
	}

	scopes := h.requestedScopes(props)
	var extra []oauth2.AuthCodeOption
	for _, name := range []string{ParamAccessType, ParamApprovalPrompt, ParamLoginHint} {
		if v, ok := props.Take(name); ok {
			extra = append(extra, oauth2.SetAuthURLParam(name, v))
		}
	}

	state, err := h.opts.StateCodec.Protect(props)
	if err != nil {
		internalServerError(w, r, err)
		return
	}

	authURL := h.oauthConfig(h.callbackURL(r), scopes).AuthCodeURL(state, extra...)
	logDebug(r, "jetpass challenge issued", "return_to", props.RedirectURI, "scopes", len(scopes))

	rc := &ApplyRedirectContext{Writer: w, Request: r, Properties: props, RedirectURI: authURL}
	h.opts.Provider.ApplyRedirect(rc)
	if !rc.redirected {
		rc.Redirect()
	}
}

// internalServerError writes a generic 500 without exposing err.
func internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"message":"internal server error"}`))
}
