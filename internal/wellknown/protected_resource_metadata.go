package wellknown

// ProtectedResourceMetadata is the OAuth 2.0 Protected Resource Metadata
// document defined by RFC 9728, served at
// /.well-known/oauth-protected-resource.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// WellKnownPath is where the document is served, relative to the host root.
const WellKnownPath = "/.well-known/oauth-protected-resource"
