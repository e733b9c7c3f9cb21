package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// VerifyOptions toggles the optional claim checks performed during token
// validation. Signature verification and sub presence are never optional.
type VerifyOptions struct {
	Expiration bool `json:"expiration"`
	IssuedAt   bool `json:"issued_at"`
	Audience   bool `json:"audience"`
	Issuer     bool `json:"issuer"`
}

// DefaultVerifyOptions enables all four optional checks.
func DefaultVerifyOptions() VerifyOptions {
	return VerifyOptions{Expiration: true, IssuedAt: true, Audience: true, Issuer: true}
}

// AuthorizationServerConfig is the static descriptor of one trusted token
// issuer. It is constructed once at provider initialization and never
// mutated afterwards.
type AuthorizationServerConfig struct {
	// AuthorizationServerURL identifies the server and is the value published
	// in the protected resource metadata's authorization_servers list.
	AuthorizationServerURL string `json:"authorization_server_url"`
	// Issuer is the expected iss claim of tokens minted by this server.
	Issuer string `json:"issuer"`
	// JWKSURI is where the server publishes its signing keys.
	JWKSURI string `json:"jwks_uri"`
	// Algorithm is the accepted JWS algorithm. Defaults to RS256.
	Algorithm string `json:"algorithm,omitempty"`
	// Verify selects which optional claim checks apply. Nil means all checks.
	Verify *VerifyOptions `json:"verify_options,omitempty"`
}

func (c *AuthorizationServerConfig) validate() error {
	if c.AuthorizationServerURL == "" {
		return errors.New("auth: authorization_server_url is required")
	}
	if c.Issuer == "" {
		return fmt.Errorf("auth: issuer is required for authorization server %s", c.AuthorizationServerURL)
	}
	if c.JWKSURI == "" {
		return fmt.Errorf("auth: jwks_uri is required for authorization server %s", c.AuthorizationServerURL)
	}
	return nil
}

// verifyOptions returns the configured options or the default full set.
func (c *AuthorizationServerConfig) verifyOptions() VerifyOptions {
	if c.Verify == nil {
		return DefaultVerifyOptions()
	}
	return *c.Verify
}

// serverConfigList decodes a JSON array of AuthorizationServerConfig from a
// single environment variable. It implements envdecode's Decoder interface.
type serverConfigList []AuthorizationServerConfig

func (l *serverConfigList) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	var out []AuthorizationServerConfig
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return fmt.Errorf("auth: invalid authorization server list: %w", err)
	}
	*l = out
	return nil
}

// envConfig mirrors the environment variables the provider honors. Values
// present in the environment take precedence over constructor arguments.
type envConfig struct {
	CanonicalURL         string           `env:"MCP_SERVER_URL"`
	AuthorizationServers serverConfigList `env:"MCP_AUTH_SERVERS"`
	CacheTTLSeconds      int              `env:"MCP_JWKS_CACHE_TTL"`
}
