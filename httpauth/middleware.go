package httpauth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/toolgate/mcp-server-go/auth"
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
	bearerPrefix          = "Bearer "
)

// Option configures the middleware.
type Option func(*middleware)

// WithLogger sets the slog logger. If not provided, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(m *middleware) { m.log = l }
}

// metadataDiscovery is implemented by validators (such as
// auth.RemoteProvider) that can advertise an RFC 9728 protected resource
// metadata document. When the validator supports it, challenges include the
// resource_metadata attribute.
type metadataDiscovery interface {
	ResourceMetadataURL() string
}

type middleware struct {
	next        http.Handler
	validator   auth.TokenValidator
	log         *slog.Logger
	metadataURL string
}

// Wrap returns a handler that authenticates every request before invoking
// next. The bearer token is extracted from the Authorization header,
// validated through the configured validator, and the resulting identity is
// attached to the request context (see auth.UserFromContext). Failures never
// reach next: they are converted to a 401 challenge. Every request is
// independently re-validated; no validation result is cached across
// requests.
func Wrap(next http.Handler, validator auth.TokenValidator, opts ...Option) http.Handler {
	m := &middleware{next: next, validator: validator, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	if d, ok := validator.(metadataDiscovery); ok {
		m.metadataURL = d.ResourceMetadataURL()
	}
	return m
}

func (m *middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	header := r.Header.Get(authorizationHeader)
	if header == "" {
		// RFC 6750 §3.1: no credentials presented, so the challenge carries
		// no error attribute.
		m.log.InfoContext(ctx, "auth.check.missing")
		m.writeChallenge(w, nil)
		return
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		m.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "authorization header is not a bearer credential"))
		m.writeChallenge(w, nil)
		return
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		m.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "empty bearer token"))
		m.writeChallenge(w, nil)
		return
	}

	user, err := m.validator.ValidateToken(ctx, token)
	if err != nil {
		m.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrInvalidToken) {
			m.writeChallenge(w, map[string]string{
				"error":             "invalid_token",
				"error_description": err.Error(),
			})
			return
		}
		m.writeChallenge(w, nil)
		return
	}

	m.next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(ctx, user)))
}

// writeChallenge emits the 401 response: the WWW-Authenticate header per
// RFC 6750 + RFC 9728, the CORS headers browser-based MCP clients need to
// read the challenge, and a plain "Unauthorized" body.
func (m *middleware) writeChallenge(w http.ResponseWriter, params map[string]string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
	h.Set("Access-Control-Expose-Headers", "WWW-Authenticate, Mcp-Session-Id")
	h.Set(wwwAuthenticateHeader, buildBearerChallenge(m.metadataURL, params))
	h.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Unauthorized"))
}

// buildBearerChallenge builds a Bearer challenge header value:
//
//	Bearer resource_metadata="...", error="...", error_description="..."
//
// resource_metadata appears only when the validator supports discovery.
// Attribute order is fixed so responses stay byte-stable.
func buildBearerChallenge(resourceMetadata string, params map[string]string) string {
	pieces := make([]string, 0, 3)
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if resourceMetadata != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc(resourceMetadata)))
	}
	if v, ok := params["error"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
	}
	if v, ok := params["error_description"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}
