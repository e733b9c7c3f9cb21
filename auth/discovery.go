package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ServerConfigFromDiscovery builds an AuthorizationServerConfig for the given
// issuer by fetching its OIDC discovery document and extracting the JWKS URI.
// The returned config uses the full default verify options; callers may relax
// individual checks before handing it to NewRemoteProvider.
func ServerConfigFromDiscovery(ctx context.Context, issuer string) (AuthorizationServerConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return AuthorizationServerConfig{}, fmt.Errorf("auth: oidc discovery failed for %s: %w", issuer, err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return AuthorizationServerConfig{}, fmt.Errorf("auth: invalid discovery metadata for %s: %w", issuer, err)
	}
	if meta.JwksURI == "" {
		return AuthorizationServerConfig{}, fmt.Errorf("auth: discovery metadata for %s is missing jwks_uri", issuer)
	}
	return AuthorizationServerConfig{
		AuthorizationServerURL: issuer,
		Issuer:                 issuer,
		JWKSURI:                meta.JwksURI,
	}, nil
}
