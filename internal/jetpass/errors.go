// errors.go -- Failure taxonomy for configuration and callback processing.
package jetpass

import "errors"

// ErrMissingOption is returned by New when a required option is blank.
var ErrMissingOption = errors.New("jetpass: required option missing")

// ErrValidatorTransportMismatch is returned by New when a certificate validator is
// configured together with a transport it cannot be installed on.
var ErrValidatorTransportMismatch = errors.New("jetpass: certificate validator requires an *http.Transport")

// Callback failures. All of them end in a Ticket with a nil identity; none reach the host as an error.
var (
	// ErrInvalidState means the state was missing, corrupt, expired, or tampered with.
	// No properties are recoverable.
	ErrInvalidState = errors.New("jetpass: invalid or expired state")

	// ErrMalformedCallback means the callback did not carry exactly one code.
	ErrMalformedCallback = errors.New("jetpass: malformed callback")

	// ErrCorrelation means the correlation cookie was missing or did not match the state.
	ErrCorrelation = errors.New("jetpass: correlation failed")

	// ErrTokenExchange means the token endpoint failed or returned no access token.
	ErrTokenExchange = errors.New("jetpass: token exchange failed")

	// ErrProfileFetch means the user-info endpoint returned a non-2xx status.
	ErrProfileFetch = errors.New("jetpass: profile fetch failed")
)

// expected reports whether err is one of the anticipated callback failures,
// logged at warn instead of error.
func expected(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrMalformedCallback) ||
		errors.Is(err, ErrCorrelation) ||
		errors.Is(err, ErrTokenExchange) ||
		errors.Is(err, ErrProfileFetch)
}
