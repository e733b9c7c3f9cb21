// Package jwtauth validates bearer tokens against a single authorization
// server's JWKS. The public auth package composes one Verifier per configured
// issuer and maps the sentinel errors here onto its own taxonomy.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/jwkset"
	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors distinguishing failure classes. Expiration is kept separate
// because it is issuer-independent: an expired token cannot become valid by
// retrying against a different authorization server.
var (
	// ErrAuthentication covers malformed tokens and missing mandatory claims.
	ErrAuthentication = errors.New("jwtauth: authentication failed")
	// ErrInvalidToken covers signature, issuer and audience mismatches.
	ErrInvalidToken = errors.New("jwtauth: invalid token")
	// ErrTokenExpired indicates a well-formed, correctly signed token whose
	// exp claim has elapsed.
	ErrTokenExpired = errors.New("jwtauth: token expired")
)

// VerifyOptions toggles the optional claim checks. Signature verification and
// sub presence are never optional.
type VerifyOptions struct {
	Expiration bool
	IssuedAt   bool
	Audience   bool
	Issuer     bool
}

// DefaultVerifyOptions enables every optional check.
func DefaultVerifyOptions() VerifyOptions {
	return VerifyOptions{Expiration: true, IssuedAt: true, Audience: true, Issuer: true}
}

// Config describes one trusted authorization server.
type Config struct {
	Issuer    string // expected iss claim
	JWKSURI   string
	Audience  string // expected aud claim (the resource server's canonical URL)
	Algorithm string // JWS algorithm, default RS256
	Verify    VerifyOptions

	// CacheTTL bounds how long fetched JWKS keys are reused before a refresh.
	// Defaults to one hour.
	CacheTTL time.Duration
	// Leeway is the clock skew tolerance for time-based claims. Default 60s.
	Leeway time.Duration
}

// jwksHTTPTimeout bounds a single JWKS fetch so a dead authorization server
// cannot stall authentication indefinitely.
const jwksHTTPTimeout = 10 * time.Second

// futureIssuedAtTolerance is how far in the future an iat claim may sit
// (beyond leeway) before the token is rejected as implausible.
const futureIssuedAtTolerance = 5 * time.Minute

// Identity carries the validated claims of one token.
type Identity struct {
	Subject  string
	ClientID string
	Email    string
	Claims   jwt.MapClaims
}

// Verifier validates tokens issued by one authorization server. Its JWKS
// cache is owned exclusively by the Verifier; instances for different issuers
// share nothing.
type Verifier struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

// New constructs a Verifier whose JWKS is fetched eagerly and then refreshed
// in the background every CacheTTL. The fetch honors jwksHTTPTimeout.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("jwtauth: issuer is required")
	}
	if cfg.JWKSURI == "" {
		return nil, errors.New("jwtauth: jwks uri is required")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "RS256"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 60 * time.Second
	}
	if cfg.Verify.Audience && cfg.Audience == "" {
		return nil, errors.New("jwtauth: audience is required when audience verification is enabled")
	}

	store, err := jwkset.NewStorageFromHTTP(cfg.JWKSURI, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		HTTPTimeout:     jwksHTTPTimeout,
		RefreshInterval: cfg.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("jwtauth: jwks storage init failed for %s: %w", cfg.JWKSURI, err)
	}
	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: store})
	if err != nil {
		return nil, fmt.Errorf("jwtauth: keyfunc init failed for %s: %w", cfg.JWKSURI, err)
	}

	return &Verifier{cfg: cfg, keyfunc: func(t *jwt.Token) (any, error) {
		if alg := t.Method.Alg(); alg != cfg.Algorithm {
			return nil, fmt.Errorf("disallowed alg: %s", alg)
		}
		return kf.Keyfunc(t)
	}}, nil
}

// Validate checks a single bearer token. Signature verification and sub
// presence are mandatory; the remaining claim checks follow cfg.Verify.
func (v *Verifier) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrAuthentication)
	}

	// Claims are validated manually below so each verify option can be
	// toggled independently; the parser only does signature verification.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{v.cfg.Algorithm}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.Parse(token, v.keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: malformed token: %v", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("%w: signature verification failed: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", ErrAuthentication)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrAuthentication)
	}

	if v.cfg.Verify.Issuer {
		if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
			return nil, fmt.Errorf("%w: issuer mismatch: got %q, want %q", ErrInvalidToken, iss, v.cfg.Issuer)
		}
	}
	if v.cfg.Verify.Audience {
		if !audContains(claims["aud"], v.cfg.Audience) {
			return nil, fmt.Errorf("%w: audience mismatch: want %q", ErrInvalidToken, v.cfg.Audience)
		}
	}

	now := time.Now()
	if v.cfg.Verify.Expiration {
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return nil, fmt.Errorf("%w: missing or invalid exp claim", ErrAuthentication)
		}
		if exp.Before(now.Add(-v.cfg.Leeway)) {
			return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Format(time.RFC3339))
		}
	}
	if v.cfg.Verify.IssuedAt {
		iat, err := claims.GetIssuedAt()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid iat claim", ErrAuthentication)
		}
		if iat != nil && iat.After(now.Add(v.cfg.Leeway+futureIssuedAtTolerance)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrAuthentication)
		}
	}

	id := &Identity{Subject: sub, Claims: claims}
	if cid, _ := claims["client_id"].(string); cid != "" {
		id.ClientID = cid
	} else if azp, _ := claims["azp"].(string); azp != "" {
		id.ClientID = azp
	}
	if email, _ := claims["email"].(string); email != "" {
		id.Email = email
	}
	return id, nil
}

// audContains reports whether the aud claim (string or array) contains want.
func audContains(aud any, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	}
	return false
}
