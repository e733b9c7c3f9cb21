package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/toolgate/mcp-server-go/auth"
	"github.com/toolgate/mcp-server-go/httpauth"
	"github.com/toolgate/mcp-server-go/internal/jsonrpc"
	"github.com/toolgate/mcp-server-go/internal/logctx"
	"github.com/toolgate/mcp-server-go/internal/wellknown"
	"github.com/toolgate/mcp-server-go/mcp"
	"github.com/toolgate/mcp-server-go/mcpservice"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// Option configures the handler.
type Option func(*newConfig)

type newConfig struct {
	serverName    string
	serverVersion string
	instructions  string
	logger        *slog.Logger
	prompts       *mcpservice.PromptManager
	resources     *mcpservice.ResourceManager
	tools         *mcpservice.ToolManager
}

// WithServerInfo sets the name and version advertised during initialize.
func WithServerInfo(name, version string) Option {
	return func(c *newConfig) { c.serverName = name; c.serverVersion = version }
}

// WithInstructions sets the usage instructions returned to clients during
// initialize.
func WithInstructions(instructions string) Option {
	return func(c *newConfig) { c.instructions = instructions }
}

// WithLogger sets the base logger. Request and RPC attributes are added per
// message from the context.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithPrompts enables the prompts capability backed by the given manager.
func WithPrompts(pm *mcpservice.PromptManager) Option {
	return func(c *newConfig) { c.prompts = pm }
}

// WithResources enables the resources capability backed by the given manager.
func WithResources(rm *mcpservice.ResourceManager) Option {
	return func(c *newConfig) { c.resources = rm }
}

// WithTools enables the tools capability backed by the given manager.
func WithTools(tm *mcpservice.ToolManager) Option {
	return func(c *newConfig) { c.tools = tm }
}

// Handler serves the MCP endpoint over HTTP. Every POST carries a single
// JSON-RPC message and must present a bearer token accepted by the
// configured provider. The OAuth protected resource metadata document is
// served unauthenticated at its well-known path.
type Handler struct {
	log       *slog.Logger
	serverURL *url.URL
	provider  *auth.RemoteProvider

	serverInfo   mcp.ImplementationInfo
	instructions string

	prompts   *mcpservice.PromptManager
	resources *mcpservice.ResourceManager
	tools     *mcpservice.ToolManager

	mux *http.ServeMux
}

// New builds the HTTP handler for the given public endpoint URL. The
// provider authenticates every MCP request and supplies the discovery
// metadata.
func New(publicEndpoint string, provider *auth.RemoteProvider, opts ...Option) (*Handler, error) {
	if provider == nil {
		return nil, errors.New("streaminghttp: auth provider is required")
	}
	mcpURL, err := url.Parse(publicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("streaminghttp: invalid server URL %q: %w", publicEndpoint, err)
	}
	if mcpURL.Scheme != "https" && mcpURL.Scheme != "http" {
		return nil, fmt.Errorf("streaminghttp: server URL must use HTTP or HTTPS scheme, got %q", mcpURL.Scheme)
	}

	cfg := &newConfig{logger: slog.Default(), serverName: "mcp-server-go", serverVersion: "0.0.0"}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &Handler{
		log:          slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		serverURL:    mcpURL,
		provider:     provider,
		serverInfo:   mcp.ImplementationInfo{Name: cfg.serverName, Version: cfg.serverVersion},
		instructions: cfg.instructions,
		prompts:      cfg.prompts,
		resources:    cfg.resources,
		tools:        cfg.tools,
	}

	rpc := httpauth.Wrap(http.HandlerFunc(h.handlePostMCP), provider, httpauth.WithLogger(h.log))

	mux := http.NewServeMux()
	mux.Handle(fmt.Sprintf("POST %s", pathOnly(mcpURL)), rpc)

	prm := httpauth.ProtectedResourceMetadataHandler(provider)
	prmPath := wellknown.WellKnownPath + mcpURL.Path
	prmPath = strings.TrimSuffix(prmPath, "/")
	mux.Handle(fmt.Sprintf("GET %s", prmPath), prm)
	mux.Handle(fmt.Sprintf("OPTIONS %s", prmPath), prm)
	// Also serve the trailing-slash form to avoid ServeMux's implied 301.
	mux.Handle(fmt.Sprintf("GET %s/{$}", prmPath), prm)
	mux.Handle(fmt.Sprintf("OPTIONS %s/{$}", prmPath), prm)

	h.mux = mux
	return h, nil
}

func pathOnly(u *url.URL) string {
	if u == nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handlePostMCP decodes and dispatches one JSON-RPC message. Authentication
// has already succeeded by the time this runs.
func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	if user := auth.UserFromContext(ctx); user != nil {
		ctx = logctx.WithUserData(ctx, &logctx.UserData{UserID: user.UserID, ClientID: user.ClientID})
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if len(raw) > 0 && raw[0] == '[' {
		writeJSONError(w, http.StatusBadRequest, "JSON-RPC batch arrays are not supported")
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeResponse(w, h.log, ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "invalid JSON-RPC message", nil))
		return
	}
	if err := req.Validate(); err != nil {
		writeResponse(w, h.log, ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, err.Error(), nil))
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   "request",
	})
	h.log.InfoContext(ctx, "rpc.start")

	if req.IsNotification() {
		// Notifications get no response body.
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "rpc.notification.ok", slog.Duration("dur", time.Since(start)))
		return
	}

	resp := h.dispatch(ctx, &req)
	writeResponse(w, h.log, ctx, resp)
	h.log.InfoContext(ctx, "rpc.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return h.handleInitialize(req)
	case mcp.PingMethod:
		return mustResult(req.ID, struct{}{})
	case mcp.PromptsListMethod:
		if h.prompts == nil {
			return methodNotSupported(req)
		}
		return mustResult(req.ID, &mcp.ListPromptsResult{Prompts: h.prompts.ListPrompts()})
	case mcp.PromptsGetMethod:
		if h.prompts == nil {
			return methodNotSupported(req)
		}
		var params mcp.GetPromptRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid prompts/get params", nil)
		}
		res, err := h.prompts.GetPrompt(ctx, &params)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return mustResult(req.ID, res)
	case mcp.ResourcesListMethod:
		if h.resources == nil {
			return methodNotSupported(req)
		}
		return mustResult(req.ID, &mcp.ListResourcesResult{Resources: h.resources.ListResources()})
	case mcp.ResourcesTemplatesListMethod:
		if h.resources == nil {
			return methodNotSupported(req)
		}
		return mustResult(req.ID, &mcp.ListResourceTemplatesResult{ResourceTemplates: h.resources.ListTemplates()})
	case mcp.ResourcesReadMethod:
		if h.resources == nil {
			return methodNotSupported(req)
		}
		var params mcp.ReadResourceRequest
		if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid resources/read params", nil)
		}
		contents, err := h.resources.ReadResource(ctx, params.URI)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return mustResult(req.ID, &mcp.ReadResourceResult{Contents: contents})
	case mcp.ToolsListMethod:
		if h.tools == nil {
			return methodNotSupported(req)
		}
		return mustResult(req.ID, &mcp.ListToolsResult{Tools: h.tools.ListTools()})
	case mcp.ToolsCallMethod:
		if h.tools == nil {
			return methodNotSupported(req)
		}
		var params mcp.CallToolRequest
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/call params", nil)
		}
		res, err := h.tools.CallTool(ctx, &params)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return mustResult(req.ID, res)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("method %q is not supported", req.Method), nil)
	}
}

func (h *Handler) handleInitialize(req *jsonrpc.Request) *jsonrpc.Response {
	var params mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params", nil)
		}
	}

	caps := mcp.ServerCapabilities{}
	if h.prompts != nil {
		caps.Prompts = &mcp.PromptsCapability{}
	}
	if h.resources != nil {
		caps.Resources = &mcp.ResourcesCapability{}
	}
	if h.tools != nil {
		caps.Tools = &mcp.ToolsCapability{}
	}

	return mustResult(req.ID, &mcp.InitializeResult{
		ProtocolVersion: mcp.LatestProtocolVersion,
		Capabilities:    caps,
		ServerInfo:      h.serverInfo,
		Instructions:    h.instructions,
	})
}

// errorResponse maps component errors onto JSON-RPC error codes. Lookup
// misses and contract violations are the caller's fault; everything else is
// an internal failure.
func errorResponse(id *jsonrpc.RequestID, err error) *jsonrpc.Response {
	switch {
	case errors.Is(err, mcpservice.ErrNotFound), errors.Is(err, mcpservice.ErrInvalidArguments):
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
	default:
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
	}
}

func methodNotSupported(req *jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("method %q is not supported by this server", req.Method), nil)
}

func mustResult(id *jsonrpc.RequestID, result any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "failed to encode result", nil)
	}
	return resp
}

func writeResponse(w http.ResponseWriter, log *slog.Logger, ctx context.Context, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.ErrorContext(ctx, "rpc.write.fail", slog.String("err", err.Error()))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
