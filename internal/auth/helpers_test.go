package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MGallo-Code/jetpass/internal/jetpass"
	"github.com/MGallo-Code/jetpass/internal/store"
	"github.com/MGallo-Code/jetpass/internal/testutil"
	"github.com/gofrs/uuid/v5"
)

const testHubRoot = "https://hub.test"

// newTestHandler returns an AuthHandler over fresh mocks, wired to a JetPass
// handler pointing at a hub that is never contacted.
func newTestHandler(t *testing.T) (*AuthHandler, *testutil.MockStore, *testutil.MockCache) {
	t.Helper()
	ms := testutil.NewMockStore()
	mc := testutil.NewMockCache()
	h := &AuthHandler{IS: ms, RS: mc, SessionTTL: time.Hour}

	ep, err := jetpass.EndpointsForRoot(testHubRoot)
	if err != nil {
		t.Fatalf("EndpointsForRoot: %v", err)
	}
	jp, err := jetpass.New(jetpass.Options{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoints:    ep,
		SignIn:       h,
	})
	if err != nil {
		t.Fatalf("jetpass.New: %v", err)
	}
	h.JetPass = jp
	return h, ms, mc
}

// sessionFixture returns deterministic session material.
//   - cookie: base64 raw token (the __Host-session value)
//   - key: base64 SHA-256(token), the cache key
func sessionFixture() (cookie, key string) {
	var token [32]byte
	for i := range token {
		token[i] = byte(i + 1)
	}
	hash := sha256.Sum256(token[:])
	return base64.RawURLEncoding.EncodeToString(token[:]), cacheKey(hash[:])
}

// seedSession stores a session for a fresh user and returns the cookie value and user id.
func seedSession(t *testing.T, ms *testutil.MockStore, mc *testutil.MockCache) (string, uuid.UUID) {
	t.Helper()
	name := "Ann"
	id, err := ms.UpsertIdentity(t.Context(), "JetPass", "42", &name, []string{"a@x.com"})
	if err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}
	cookie, key := sessionFixture()
	mc.Sessions[key] = &store.Session{
		UserID:             id,
		AuthenticationType: "session",
		Name:               name,
		Emails:             []string{"a@x.com"},
		Claims:             []store.Claim{{Type: jetpass.ClaimNameIdentifier, Value: "42"}},
		ExpiresAt:          time.Now().Add(time.Hour),
	}
	return cookie, id
}

func withSessionCookie(r *http.Request, value string) *http.Request {
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: value})
	return r
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// challengeProps decodes the properties carried by a challenge redirect.
func challengeProps(t *testing.T, h *AuthHandler, w *httptest.ResponseRecorder) (*url.URL, *jetpass.Properties) {
	t.Helper()
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	props, err := h.JetPass.Options().StateCodec.Unprotect(loc.Query().Get("state"))
	if err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	return loc, props
}
