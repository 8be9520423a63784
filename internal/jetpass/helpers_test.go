// helpers_test.go -- shared fixtures: a fake hub and request builders.
package jetpass

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testAppOrigin    = "https://app.test"
)

// fakeHub serves the token and user-info endpoints and records what it received.
type fakeHub struct {
	srv *httptest.Server

	mu            sync.Mutex
	tokenStatus   int
	tokenBody     string
	profileStatus int
	profileBody   string

	tokenCalls   int
	profileCalls int
	tokenForm    url.Values
	tokenAuth    string
	profileAuth  string
}

// newFakeHub starts a hub answering the happy path of the end-to-end handshake.
func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	f := &fakeHub{
		tokenStatus:   http.StatusOK,
		tokenBody:     `{"access_token":"T","expires_in":"3600"}`,
		profileStatus: http.StatusOK,
		profileBody:   `{"id":"1","name":"U","contacts":[{"verified":true,"email":"u@x"}]}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		f.mu.Lock()
		f.tokenCalls++
		f.tokenForm = r.PostForm
		f.tokenAuth = r.Header.Get("Authorization")
		status, body := f.tokenStatus, f.tokenBody
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	mux.HandleFunc("/rest/users/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.profileCalls++
		f.profileAuth = r.Header.Get("Authorization")
		status, body := f.profileStatus, f.profileBody
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHub) endpoints(t *testing.T) Endpoints {
	t.Helper()
	ep, err := EndpointsForRoot(f.srv.URL)
	if err != nil {
		t.Fatalf("EndpointsForRoot: %v", err)
	}
	return ep
}

// setToken replaces the token endpoint's response.
func (f *fakeHub) setToken(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus, f.tokenBody = status, body
}

// setProfile replaces the user-info endpoint's response.
func (f *fakeHub) setProfile(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileStatus, f.profileBody = status, body
}

// received returns the token request's form and Authorization header and the
// profile request's Authorization header.
func (f *fakeHub) received() (form url.Values, tokenAuth, profileAuth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenForm, f.tokenAuth, f.profileAuth
}

func (f *fakeHub) calls() (token, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.profileCalls
}

// testCodec returns a codec with a fixed key so tests can inspect states.
func testCodec(t *testing.T) *JOSECodec {
	t.Helper()
	c, err := NewJOSECodecFromSecret([]byte("test-secret"), StatePurpose(DefaultAuthenticationType), time.Minute)
	if err != nil {
		t.Fatalf("NewJOSECodecFromSecret: %v", err)
	}
	return c
}

// newTestHandler builds a Handler against hub; mutate may adjust options first.
func newTestHandler(t *testing.T, hub *fakeHub, mutate func(*Options)) *Handler {
	t.Helper()
	opts := Options{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Scope:        []string{"a", "b"},
		StateCodec:   testCodec(t),
	}
	if hub != nil {
		opts.Endpoints = hub.endpoints(t)
	}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

// findCookie returns the named cookie from a recorded response, or nil.
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// runChallenge issues a challenge from target and returns the authorize URL and the
// correlation cookie.
func runChallenge(t *testing.T, h *Handler, target string, props *Properties) (*url.URL, *http.Cookie) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.Challenge(w, r, props)
	if w.Code != http.StatusFound {
		t.Fatalf("challenge status: expected 302, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	cookie := findCookie(w, correlationCookie)
	if cookie == nil {
		t.Fatal("correlation cookie not set")
	}
	return loc, cookie
}

// callbackRequest builds the callback the provider would send, with a raw query.
func callbackRequest(h *Handler, rawQuery string, cookie *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, testAppOrigin+h.CallbackPath()+"?"+rawQuery, nil)
	if cookie != nil {
		r.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return r
}

// callbackQuery encodes code and state.
func callbackQuery(code, state string) string {
	return url.Values{"code": {code}, "state": {state}}.Encode()
}

// recordingSignIn captures what the handler signs in.
type recordingSignIn struct {
	identity *Identity
	props    *Properties
	err      error
}

func (s *recordingSignIn) SignIn(_ http.ResponseWriter, _ *http.Request, identity *Identity, props *Properties) error {
	s.identity = identity
	s.props = props
	return s.err
}
