// callback.go -- Callback processing: state, code exchange, profile, identity.
package jetpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Ticket is the outcome of a callback. Identity is nil when authentication did not
// complete. Properties is nil only when the state could not be recovered.
type Ticket struct {
	Identity   *Identity
	Properties *Properties
	// Err explains a failed attempt; nil on success.
	Err error
}

// Succeeded reports whether the attempt produced an identity.
func (t *Ticket) Succeeded() bool { return t.Identity != nil }

// singleQueryValue returns the value of key when it appears exactly once.
func singleQueryValue(q url.Values, key string) string {
	if vs := q[key]; len(vs) == 1 {
		return vs[0]
	}
	return ""
}

// Authenticate runs the callback state machine for r and never returns an error:
// every failure, including a panicking hook, becomes a Ticket with a nil identity
// and whatever properties had been recovered.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) (t *Ticket) {
	var props *Properties
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic during authentication: %v", p)
			logError(r, "jetpass authentication failed", "error", err)
			t = &Ticket{Properties: props, Err: err}
		}
	}()

	identity, err := h.authenticate(w, r, &props)
	if err != nil {
		if expected(err) {
			logWarn(r, "jetpass authentication failed", "error", err)
		} else {
			logError(r, "jetpass authentication failed", "error", err)
		}
		return &Ticket{Properties: props, Err: err}
	}
	return &Ticket{Identity: identity, Properties: props}
}

// authenticate performs the steps in order and stops at the first failure. *props is
// set as soon as the state has been unprotected so the caller can still redirect.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, props **Properties) (*Identity, error) {
	// Start
	q := r.URL.Query()
	code := singleQueryValue(q, "code")
	state := singleQueryValue(q, "state")

	// StateValidated
	p, err := h.opts.StateCodec.Unprotect(state)
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			err = fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return nil, err
	}
	if p == nil {
		return nil, ErrInvalidState
	}
	*props = p
	if err := validateCorrelationID(w, r, p); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrMalformedCallback
	}

	// TokenExchanged
	cfg := h.oauthConfig(h.callbackURL(r), nil)
	tokenCtx := context.WithValue(context.WithoutCancel(r.Context()), oauth2.HTTPClient, h.tokenClient)
	token, err := cfg.Exchange(tokenCtx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("%w: blank access token", ErrTokenExchange)
	}

	// ProfileFetched
	raw, err := h.fetchProfile(r.Context(), token)
	if err != nil {
		return nil, err
	}

	// IdentityBuilt
	profile, err := ParseProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	ac := &AuthenticatedContext{
		Request:      r,
		User:         profile.Raw,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn(token.Extra("expires_in")),
		ID:           profile.ID,
		Name:         profile.Name,
		Emails:       profile.Emails,
		Identity:     profile.Identity(h.opts.AuthenticationType),
		Properties:   p,
	}
	if err := h.opts.Provider.Authenticated(r.Context(), ac); err != nil {
		return nil, fmt.Errorf("authenticated hook: %w", err)
	}
	*props = ac.Properties

	// Completed
	logDebug(r, "jetpass authentication succeeded", "claims", len(ac.Identity.Claims))
	return ac.Identity, nil
}

// fetchProfile GETs the user-info document with the access token. ctx is the inbound
// request's context so an aborted request cancels the call.
func (h *Handler) fetchProfile(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.Endpoints.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating profile request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := h.backchannel.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrProfileFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return body, nil
}

// expiresIn converts the raw expires_in value (number or numeric string) to a duration.
func expiresIn(v any) *time.Duration {
	var secs int64
	switch x := v.(type) {
	case float64:
		secs = int64(x)
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		secs = n
	default:
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}

// HandleCallback processes a callback request and reports whether the response was
// completed. It signs the identity in, then redirects to the return target, adding
// error=access_denied when authentication failed.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) (handled bool) {
	defer func() {
		if p := recover(); p != nil {
			internalServerError(w, r, fmt.Errorf("panic during callback: %v", p))
			handled = true
		}
	}()

	ticket := h.Authenticate(w, r)
	if ticket.Properties == nil {
		logWarn(r, "invalid return state, unable to redirect")
		internalServerError(w, r, ticket.Err)
		return true
	}

	rc := &ReturnEndpointContext{
		Writer:                     w,
		Request:                    r,
		Identity:                   ticket.Identity,
		Properties:                 ticket.Properties,
		SignInAsAuthenticationType: h.opts.SignInAsAuthenticationType,
		RedirectURI:                ticket.Properties.RedirectURI,
	}
	if err := h.opts.Provider.ReturnEndpoint(r.Context(), rc); err != nil {
		internalServerError(w, r, fmt.Errorf("return endpoint hook: %w", err))
		return true
	}

	if rc.SignInAsAuthenticationType != "" && rc.Identity != nil && h.opts.SignIn != nil {
		grant := rc.Identity
		if grant.AuthenticationType != rc.SignInAsAuthenticationType {
			grant = grant.WithAuthenticationType(rc.SignInAsAuthenticationType)
		}
		if err := h.opts.SignIn.SignIn(w, r, grant, rc.Properties); err != nil {
			internalServerError(w, r, fmt.Errorf("signing in: %w", err))
			return true
		}
		logInfo(r, "jetpass user signed in", "authentication_type", grant.AuthenticationType)
	}

	if !rc.IsRequestCompleted() && rc.RedirectURI != "" {
		target := rc.RedirectURI
		if rc.Identity == nil {
			target = addQueryParam(target, "error", "access_denied")
		}
		http.Redirect(w, r, target, http.StatusFound)
		rc.RequestCompleted()
	}
	return rc.IsRequestCompleted()
}

// addQueryParam appends name=value to uri, keeping any existing query and fragment.
func addQueryParam(uri, name, value string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	q.Add(name, value)
	u.RawQuery = q.Encode()
	return u.String()
}
