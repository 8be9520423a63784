// discovery.go -- Resolves provider endpoints from an OpenID discovery document.
package jetpass

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DiscoverEndpoints fetches <issuer>/.well-known/openid-configuration and returns the
// authorization, token and user-info endpoints it advertises. client may be nil.
func DiscoverEndpoints(ctx context.Context, issuer string, client *http.Client) (Endpoints, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("oidc discovery: %w", err)
	}

	var meta struct {
		UserInfo string `json:"userinfo_endpoint"`
	}
	if err := p.Claims(&meta); err != nil {
		return Endpoints{}, fmt.Errorf("reading discovery document: %w", err)
	}

	ep := p.Endpoint()
	if ep.AuthURL == "" || ep.TokenURL == "" || meta.UserInfo == "" {
		return Endpoints{}, errors.New("discovery document is missing an endpoint")
	}
	return Endpoints{
		AuthorizationEndpoint: ep.AuthURL,
		TokenEndpoint:         ep.TokenURL,
		UserInfoEndpoint:      meta.UserInfo,
	}, nil
}
