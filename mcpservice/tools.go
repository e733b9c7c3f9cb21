package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/toolgate/mcp-server-go/mcp"
	"github.com/toolgate/mcp-server-go/registry"
)

// ToolHandler handles a tool invocation.
type ToolHandler func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

type toolEntry struct {
	def     mcp.Tool
	handler ToolHandler
}

// ToolManager is the registry of callable tools, with the same deterministic
// ordering and concurrency contract as the prompt and resource managers.
type ToolManager struct {
	reg *registry.Registry[toolEntry]
}

// NewToolManager constructs an empty ToolManager.
func NewToolManager(tools ...StaticTool) *ToolManager {
	tm := &ToolManager{reg: registry.New[toolEntry]()}
	for _, t := range tools {
		tm.AddTool(t)
	}
	return tm
}

// AddTool registers a tool, replacing any previous registration of the name.
func (tm *ToolManager) AddTool(t StaticTool) {
	tm.reg.Upsert(t.Descriptor.Name, toolEntry{def: t.Descriptor, handler: t.Handler})
}

// RemoveTool deletes a tool by name.
func (tm *ToolManager) RemoveTool(name string) error {
	if _, err := tm.reg.Remove(name); err != nil {
		return toolNotFound(name)
	}
	return nil
}

// ListTools returns all tool descriptors in name order.
func (tm *ToolManager) ListTools() []mcp.Tool {
	entries := tm.reg.List()
	out := make([]mcp.Tool, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value.def)
	}
	return out
}

// CallTool dispatches a tool call to the registered handler. Handler errors
// propagate to the caller; argument decoding problems surface as an
// IsError result so the calling agent can correct its arguments and retry.
func (tm *ToolManager) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, errors.New("mcpservice: tool call is missing a name")
	}
	entry, err := tm.reg.Get(req.Name)
	if err != nil {
		return nil, toolNotFound(req.Name)
	}
	if entry.handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", req.Name)
	}
	return entry.handler(ctx, req)
}

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description               string
	allowAdditionalProperties bool // default false (strict)
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolAllowAdditionalProperties controls whether unknown argument fields
// are allowed. When false (default), the generated schema sets
// additionalProperties=false and decoding rejects unknown fields.
func WithToolAllowAdditionalProperties(allow bool) ToolOption {
	return func(c *toolConfig) { c.allowAdditionalProperties = allow }
}

// NewTool constructs a StaticTool from a typed args struct A. It reflects a
// JSON Schema from A, down-converts it to MCP's simplified ToolInputSchema,
// and wraps the handler with runtime JSON decoding.
func NewTool[A any](name string, fn func(ctx context.Context, args A) (*mcp.CallToolResult, error), opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectToMCPInputSchema[A](cfg.allowAdditionalProperties),
	}
	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var a A
		if len(req.Arguments) > 0 {
			if cfg.allowAdditionalProperties {
				if err := json.Unmarshal(req.Arguments, &a); err != nil {
					return ErrorResultf("invalid arguments: %v", err), nil
				}
			} else {
				dec := json.NewDecoder(bytes.NewReader(req.Arguments))
				dec.DisallowUnknownFields()
				if err := dec.Decode(&a); err != nil {
					return ErrorResultf("invalid arguments: %v", err), nil
				}
			}
		}
		return fn(ctx, a)
	}
	return StaticTool{Descriptor: desc, Handler: handler}
}

// TextResult builds a successful single-text tool result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: text}}}
}

// ErrorResultf builds an IsError tool result with a formatted message.
func ErrorResultf(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: fmt.Sprintf(format, args...)}},
	}
}

// reflectToMCPInputSchema reflects a Go type A into a jsonschema.Schema and
// converts it to the simplified mcp.ToolInputSchema.
func reflectToMCPInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true, // inline defs
		ExpandedStruct:            true, // put struct at root
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))

	// Only object schemas map cleanly to an MCP input schema. Anything else
	// is exposed as an empty object with the configured unknown-field policy.
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:                 "object",
			Properties:           map[string]mcp.SchemaProperty{},
			AdditionalProperties: allowAdditional,
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toMCPProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: allowAdditional,
	}
}

// toMCPProperty recursively maps a jsonschema.Schema to the simplified MCP
// SchemaProperty.
func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toMCPProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

func toolNotFound(name string) error {
	return fmt.Errorf("%w: tool %q is not registered; use tools/list to discover callable tools", ErrNotFound, name)
}
