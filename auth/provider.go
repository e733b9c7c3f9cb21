package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/toolgate/mcp-server-go/internal/jwtauth"
	"github.com/toolgate/mcp-server-go/internal/wellknown"
)

// ProviderOption configures optional aspects of a RemoteProvider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	logger   *slog.Logger
	cacheTTL time.Duration
}

// WithLogger sets the slog logger used for per-verifier fanout diagnostics.
// If not provided, slog.Default() is used.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(c *providerConfig) { c.logger = l }
}

// WithCacheTTL sets how long JWKS documents are cached per verifier. As
// with the other provider settings, MCP_JWKS_CACHE_TTL takes precedence
// when set. Default: one hour.
func WithCacheTTL(d time.Duration) ProviderOption {
	return func(c *providerConfig) { c.cacheTTL = d }
}

// RemoteProvider validates bearer tokens against one or more independent
// authorization servers and presents a single discovery-capable surface.
// It implements TokenValidator.
//
// Every request is validated from scratch: only JWKS key material is
// cached, never the outcome of a previous validation.
type RemoteProvider struct {
	canonicalURL string
	servers      []AuthorizationServerConfig
	verifiers    []TokenValidator
	log          *slog.Logger
}

var _ TokenValidator = (*RemoteProvider)(nil)

// NewRemoteProvider builds a provider from the given canonical URL (this
// server's own resource identifier, used as the expected audience) and the
// list of trusted authorization servers. Equivalent environment
// configuration (MCP_SERVER_URL, MCP_AUTH_SERVERS, MCP_JWKS_CACHE_TTL) takes
// precedence over the arguments when present. Missing both is a fatal
// configuration error here, not at request time.
func NewRemoteProvider(ctx context.Context, canonicalURL string, servers []AuthorizationServerConfig, opts ...ProviderOption) (*RemoteProvider, error) {
	cfg := &providerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	var env envConfig
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("auth: environment configuration invalid: %w", err)
	}
	if env.CanonicalURL != "" {
		canonicalURL = env.CanonicalURL
	}
	if len(env.AuthorizationServers) > 0 {
		servers = env.AuthorizationServers
	}
	cfg.cacheTTL = resolveCacheTTL(cfg.cacheTTL, env.CacheTTLSeconds)

	canonicalURL = strings.TrimRight(strings.TrimSpace(canonicalURL), "/")
	if canonicalURL == "" {
		return nil, errors.New("auth: canonical URL is required (argument or MCP_SERVER_URL)")
	}
	if len(servers) == 0 {
		return nil, errors.New("auth: at least one authorization server is required (argument or MCP_AUTH_SERVERS)")
	}

	p := &RemoteProvider{
		canonicalURL: canonicalURL,
		servers:      append([]AuthorizationServerConfig(nil), servers...),
		log:          cfg.logger,
	}
	for i := range p.servers {
		sc := &p.servers[i]
		if err := sc.validate(); err != nil {
			return nil, err
		}
		v, err := jwtauth.New(ctx, jwtauth.Config{
			Issuer:    sc.Issuer,
			JWKSURI:   sc.JWKSURI,
			Audience:  canonicalURL,
			Algorithm: sc.Algorithm,
			Verify:    jwtauth.VerifyOptions(sc.verifyOptions()),
			CacheTTL:  cfg.cacheTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("auth: verifier init failed for %s: %w", sc.AuthorizationServerURL, err)
		}
		p.verifiers = append(p.verifiers, &jwtVerifier{v: v})
	}
	return p, nil
}

// resolveCacheTTL applies the precedence rule for the JWKS cache TTL:
// environment over option over the one-hour default.
func resolveCacheTTL(opt time.Duration, envSeconds int) time.Duration {
	if envSeconds > 0 {
		return time.Duration(envSeconds) * time.Second
	}
	if opt > 0 {
		return opt
	}
	return time.Hour
}

// ValidateToken tries each configured verifier in insertion order. An
// expired token short-circuits: expiration is a universal truth independent
// of which issuer is checked, so retrying against further issuers cannot
// help. Other failures move on to the next verifier, since the token might
// belong to a different issuer.
func (p *RemoteProvider) ValidateToken(ctx context.Context, token string) (*UserInfo, error) {
	for i, v := range p.verifiers {
		u, err := v.ValidateToken(ctx, token)
		if err == nil {
			return u, nil
		}
		if errors.Is(err, ErrTokenExpired) {
			return nil, err
		}
		p.log.DebugContext(ctx, "auth.verifier.reject",
			slog.String("authorization_server", p.servers[i].AuthorizationServerURL),
			slog.String("err", err.Error()))
	}
	return nil, fmt.Errorf("%w: validation failed for all configured authorization servers", ErrInvalidToken)
}

// CanonicalURL returns this server's own resource identifier.
func (p *RemoteProvider) CanonicalURL() string { return p.canonicalURL }

// ResourceMetadata returns the OAuth Protected Resource Metadata document
// (RFC 9728) describing this server and its trusted authorization servers.
func (p *RemoteProvider) ResourceMetadata() wellknown.ProtectedResourceMetadata {
	urls := make([]string, 0, len(p.servers))
	for _, s := range p.servers {
		urls = append(urls, s.AuthorizationServerURL)
	}
	return wellknown.ProtectedResourceMetadata{
		Resource:               p.canonicalURL,
		AuthorizationServers:   urls,
		BearerMethodsSupported: []string{"authorization_header"},
	}
}

// ResourceMetadataURL returns the absolute URL where the protected resource
// metadata document is served. RFC 9728 inserts the well-known segment
// between the host and the resource's path, so a canonical URL of
// https://host/mcp yields https://host/.well-known/oauth-protected-resource/mcp.
func (p *RemoteProvider) ResourceMetadataURL() string {
	u, err := url.Parse(p.canonicalURL)
	if err != nil {
		return p.canonicalURL + wellknown.WellKnownPath
	}
	md := url.URL{Scheme: u.Scheme, Host: u.Host, Path: wellknown.WellKnownPath + u.Path}
	return md.String()
}

// jwtVerifier adapts the internal single-issuer verifier to TokenValidator,
// mapping internal sentinels onto the public error taxonomy.
type jwtVerifier struct {
	v *jwtauth.Verifier
}

func (j *jwtVerifier) ValidateToken(ctx context.Context, token string) (*UserInfo, error) {
	id, err := j.v.Validate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, jwtauth.ErrTokenExpired):
			return nil, errors.Join(ErrTokenExpired, err)
		case errors.Is(err, jwtauth.ErrInvalidToken):
			return nil, errors.Join(ErrInvalidToken, err)
		default:
			return nil, errors.Join(ErrAuthentication, err)
		}
	}
	return &UserInfo{
		UserID:   id.Subject,
		ClientID: id.ClientID,
		Email:    id.Email,
		Claims:   id.Claims,
	}, nil
}
