// discovery_test.go -- unit tests for DiscoverEndpoints.
package jetpass

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// discoveryServer serves an OpenID configuration; edit may change the document.
func discoveryServer(t *testing.T, edit func(doc map[string]any, issuer string)) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		doc := map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/api/rest/oauth2/auth",
			"token_endpoint":         srv.URL + "/api/rest/oauth2/token",
			"userinfo_endpoint":      srv.URL + "/api/rest/users/me",
			"jwks_uri":               srv.URL + "/api/rest/oauth2/keys",
		}
		if edit != nil {
			edit(doc, srv.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoverEndpoints(t *testing.T) {
	srv := discoveryServer(t, nil)

	ep, err := DiscoverEndpoints(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("DiscoverEndpoints: %v", err)
	}
	want := Endpoints{
		AuthorizationEndpoint: srv.URL + "/api/rest/oauth2/auth",
		TokenEndpoint:         srv.URL + "/api/rest/oauth2/token",
		UserInfoEndpoint:      srv.URL + "/api/rest/users/me",
	}
	if ep != want {
		t.Errorf("expected %+v, got %+v", want, ep)
	}
}

func TestDiscoverEndpoints_Errors(t *testing.T) {
	t.Run("missing userinfo endpoint", func(t *testing.T) {
		srv := discoveryServer(t, func(doc map[string]any, _ string) { delete(doc, "userinfo_endpoint") })
		if _, err := DiscoverEndpoints(context.Background(), srv.URL, nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		srv := discoveryServer(t, func(doc map[string]any, issuer string) { doc["issuer"] = issuer + "/other" })
		if _, err := DiscoverEndpoints(context.Background(), srv.URL, nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no document", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)
		if _, err := DiscoverEndpoints(context.Background(), srv.URL, nil); err == nil {
			t.Error("expected error")
		}
	})
}
