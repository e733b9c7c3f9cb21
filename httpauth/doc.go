// Package httpauth enforces bearer token authentication at the HTTP layer.
//
// Wrap turns any http.Handler into a protected resource: every inbound
// request moves through extract → validate → authorize, and any failure is
// converted into a 401 response with an RFC 6750 / RFC 9728 WWW-Authenticate
// challenge before the wrapped handler is ever invoked. On success the
// authenticated identity rides the request context and is retrievable with
// auth.UserFromContext.
//
// ProtectedResourceMetadataHandler serves the discovery document that the
// challenge's resource_metadata attribute points clients at.
package httpauth
