// Package auth validates bearer tokens for MCP resource servers that
// delegate authorization to one or more external OAuth 2.0 / OIDC
// authorization servers.
//
// The public surface intentionally stays small: a TokenValidator validates
// an incoming bearer token string and returns a UserInfo (or an error). The
// HTTP layer (package httpauth) is responsible for extracting the token from
// the request and mapping sentinel errors into RFC 6750 challenges.
//
// # Multiple authorization servers
//
// NewRemoteProvider composes one verifier per configured
// AuthorizationServerConfig and tries each in insertion order. A token that
// one issuer rejects may still be valid for another, so non-expiry failures
// fall through to the next verifier. An expired token stops the fanout
// immediately: expiry holds regardless of which issuer is asked.
//
// Example:
//
//	ctx := context.Background()
//	provider, err := auth.NewRemoteProvider(ctx, "https://mcp.example.com",
//	    []auth.AuthorizationServerConfig{{
//	        AuthorizationServerURL: "https://issuer.example",
//	        Issuer:                 "https://issuer.example",
//	        JWKSURI:                "https://issuer.example/keys",
//	    }},
//	)
//	if err != nil { log.Fatal(err) }
//
//	ui, err := provider.ValidateToken(r.Context(), bearerToken)
//	if errors.Is(err, auth.ErrTokenExpired) { /* 401, token expired */ }
//	if errors.Is(err, auth.ErrAuthentication) { /* 401 */ }
//	userID := ui.UserID
//
// # Environment configuration
//
// MCP_SERVER_URL, MCP_AUTH_SERVERS (a JSON array of authorization server
// descriptors) and MCP_JWKS_CACHE_TTL override the constructor arguments
// when set. A provider configured with neither arguments nor environment
// fails at construction, not at request time.
//
// # Errors
//
// ErrAuthentication is the base failure; ErrInvalidToken (signature, issuer
// or audience mismatch) and ErrTokenExpired refine it and match it under
// errors.Is. Transports use the refinement to decide which error attributes
// a WWW-Authenticate challenge carries.
package auth
