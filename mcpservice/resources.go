package mcpservice

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/yosida95/uritemplate/v3"

	"github.com/toolgate/mcp-server-go/mcp"
	"github.com/toolgate/mcp-server-go/registry"
)

// ResourceHandler produces the contents of one resource read. A handler may
// return any of:
//
//   - string: one text-content entry
//   - []byte: one base64 blob-content entry
//   - mcp.ResourceContents or []mcp.ResourceContents: returned as-is
//   - map[string]any with a "text" or "blob" key: one entry of that kind
//   - anything else: stringified into one text-content entry
type ResourceHandler func(ctx context.Context, uri string) (any, error)

type resourceEntry struct {
	def     mcp.Resource
	handler ResourceHandler
}

// ResourceManager is the registry of URI-addressed resources and, in a
// separate namespace, resource templates. Templates are descriptive: they
// are listed and matched against concrete URIs but never read.
type ResourceManager struct {
	resources *registry.Registry[resourceEntry]
	templates *registry.Registry[mcp.ResourceTemplate]
}

// NewResourceManager constructs an empty ResourceManager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		resources: registry.New[resourceEntry](),
		templates: registry.New[mcp.ResourceTemplate](),
	}
}

// AddResource registers a resource, replacing any previous registration for
// the same URI. A nil handler registers a descriptive-only resource: reads
// succeed with a single empty text-content placeholder.
func (rm *ResourceManager) AddResource(def mcp.Resource, handler ResourceHandler) {
	rm.resources.Upsert(def.URI, resourceEntry{def: def, handler: handler})
}

// UpdateResource replaces an existing resource's definition and handler,
// failing with a not-found error when the URI was never registered.
func (rm *ResourceManager) UpdateResource(def mcp.Resource, handler ResourceHandler) error {
	if err := rm.resources.Update(def.URI, resourceEntry{def: def, handler: handler}); err != nil {
		return resourceNotFound(def.URI)
	}
	return nil
}

// RemoveResource deletes a resource (and its handler) by URI, returning the
// prior definition.
func (rm *ResourceManager) RemoveResource(uri string) (mcp.Resource, error) {
	entry, err := rm.resources.Remove(uri)
	if err != nil {
		return mcp.Resource{}, resourceNotFound(uri)
	}
	return entry.def, nil
}

// ListResources returns all registered resource definitions in URI order.
func (rm *ResourceManager) ListResources() []mcp.Resource {
	entries := rm.resources.List()
	out := make([]mcp.Resource, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value.def)
	}
	return out
}

// ReadResource resolves a read for the given URI. With a registered handler
// the handler runs and its result is normalized (see ResourceHandler). With
// no handler the resource must still exist; the read then yields one empty
// text-content placeholder rather than an error.
func (rm *ResourceManager) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	entry, err := rm.resources.Get(uri)
	if err != nil {
		return nil, resourceNotFound(uri)
	}
	if entry.handler == nil {
		return []mcp.ResourceContents{{URI: uri, MimeType: entry.def.MimeType}}, nil
	}
	v, err := entry.handler(ctx, uri)
	if err != nil {
		return nil, err
	}
	return normalizeContents(uri, entry.def.MimeType, v), nil
}

// AddTemplate registers a resource template, replacing any previous
// registration under the same template string.
func (rm *ResourceManager) AddTemplate(def mcp.ResourceTemplate) {
	rm.templates.Upsert(def.URITemplate, def)
}

// RemoveTemplate deletes a template by its template string.
func (rm *ResourceManager) RemoveTemplate(uriTemplate string) error {
	if _, err := rm.templates.Remove(uriTemplate); err != nil {
		return fmt.Errorf("%w: resource template %q is not registered; use resources/templates/list to discover templates", ErrNotFound, uriTemplate)
	}
	return nil
}

// ListTemplates returns all registered templates sorted by template string.
func (rm *ResourceManager) ListTemplates() []mcp.ResourceTemplate {
	entries := rm.templates.List()
	out := make([]mcp.ResourceTemplate, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

// MatchTemplate finds the first registered template (in template-string
// order) whose RFC 6570 expansion matches uri, returning the template and
// the extracted variables.
func (rm *ResourceManager) MatchTemplate(uri string) (mcp.ResourceTemplate, map[string]string, bool) {
	for _, e := range rm.templates.List() {
		tpl, err := uritemplate.New(e.Value.URITemplate)
		if err != nil {
			continue
		}
		values := tpl.Match(uri)
		if len(values) == 0 {
			continue
		}
		params := make(map[string]string, len(values))
		for name, value := range values {
			params[name] = value.String()
		}
		return e.Value, params, true
	}
	return mcp.ResourceTemplate{}, nil, false
}

// normalizeContents maps a handler's return value onto resource contents.
func normalizeContents(uri, mimeType string, v any) []mcp.ResourceContents {
	switch t := v.(type) {
	case string:
		return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: t}}
	case []byte:
		return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(t)}}
	case mcp.ResourceContents:
		if t.URI == "" {
			t.URI = uri
		}
		return []mcp.ResourceContents{t}
	case []mcp.ResourceContents:
		return t
	case map[string]any:
		if text, ok := t["text"].(string); ok {
			return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}}
		}
		if blob, ok := t["blob"]; ok {
			switch b := blob.(type) {
			case string:
				return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Blob: b}}
			case []byte:
				return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(b)}}
			}
		}
		return []mcp.ResourceContents{{URI: uri, MimeType: mimeType}}
	case nil:
		return []mcp.ResourceContents{{URI: uri, MimeType: mimeType}}
	default:
		return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: fmt.Sprintf("%v", t)}}
	}
}

func resourceNotFound(uri string) error {
	return fmt.Errorf("%w: resource %q is not registered; use resources/list to discover readable URIs", ErrNotFound, uri)
}
