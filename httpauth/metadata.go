package httpauth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/toolgate/mcp-server-go/auth"
)

// ProtectedResourceMetadataHandler serves the RFC 9728 OAuth Protected
// Resource Metadata document for GET requests and answers CORS preflights
// for OPTIONS. Mount it at /.well-known/oauth-protected-resource.
func ProtectedResourceMetadataHandler(p *auth.RemoteProvider) http.Handler {
	doc := p.ResourceMetadata()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode protected resource metadata: %v", err), http.StatusInternalServerError)
		}
	})
}
