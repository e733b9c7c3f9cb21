package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthentication is the base error for every authentication failure:
// missing or malformed credentials, or a token rejected for any reason.
var ErrAuthentication = errors.New("authentication failed")

// ErrInvalidToken indicates a token whose signature, issuer or audience did
// not match any trusted authorization server. It matches ErrAuthentication
// under errors.Is.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrAuthentication)

// ErrTokenExpired indicates a correctly signed token whose exp claim has
// elapsed. It is distinguished from ErrInvalidToken because expiration is
// issuer-independent: no other authorization server could validate it either.
var ErrTokenExpired = fmt.Errorf("%w: token expired", ErrAuthentication)

// UserInfo is the authenticated principal extracted from a validated token.
// It lives for the duration of one request.
type UserInfo struct {
	// UserID is the token's sub claim. Always present: tokens without a
	// subject are rejected during validation.
	UserID string
	// ClientID is taken from the client_id claim, falling back to azp.
	ClientID string
	// Email is the email claim, when present.
	Email string
	// Claims is the full validated claim set, kept opaque for downstream use.
	Claims map[string]any
}

// DecodeClaims unmarshals the full claim set into the provided struct ref.
func (u *UserInfo) DecodeClaims(ref any) error {
	b, err := json.Marshal(u.Claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}

// TokenValidator validates bearer tokens and returns the associated user.
// Implementations return errors matching ErrAuthentication (and its
// ErrInvalidToken / ErrTokenExpired refinements) for rejected tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*UserInfo, error)
}

type userContextKey struct{}

// ContextWithUser attaches an authenticated user to ctx.
func ContextWithUser(ctx context.Context, u *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the authenticated user attached by the middleware,
// or nil if the request was not authenticated.
func UserFromContext(ctx context.Context) *UserInfo {
	u, _ := ctx.Value(userContextKey{}).(*UserInfo)
	return u
}
