package mcpservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/toolgate/mcp-server-go/mcp"
	"github.com/toolgate/mcp-server-go/registry"
)

// PromptHandler renders a prompt's messages for a get request. Handlers are
// uniformly context-aware: an implementation that needs to suspend (I/O,
// upstream calls) simply blocks on ctx like any Go function, and inherits
// the request's cancellation.
type PromptHandler func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)

type promptEntry struct {
	def     mcp.Prompt
	handler PromptHandler
}

// PromptManager is the registry of named prompt templates. All methods are
// safe for concurrent use; listing order is stable (lexicographic by name).
type PromptManager struct {
	reg *registry.Registry[promptEntry]
}

// NewPromptManager constructs an empty PromptManager.
func NewPromptManager() *PromptManager {
	return &PromptManager{reg: registry.New[promptEntry]()}
}

// AddPrompt registers a prompt, replacing any previous registration under
// the same name. A nil handler registers a descriptive-only prompt whose get
// response echoes the description as a single user message.
func (pm *PromptManager) AddPrompt(def mcp.Prompt, handler PromptHandler) {
	pm.reg.Upsert(def.Name, promptEntry{def: def, handler: handler})
}

// UpdatePrompt replaces an existing prompt's definition and handler. Unlike
// AddPrompt it never creates: an unknown name is a not-found error.
func (pm *PromptManager) UpdatePrompt(def mcp.Prompt, handler PromptHandler) error {
	if err := pm.reg.Update(def.Name, promptEntry{def: def, handler: handler}); err != nil {
		return promptNotFound(def.Name)
	}
	return nil
}

// RemovePrompt deletes a prompt by name and returns its prior definition.
func (pm *PromptManager) RemovePrompt(name string) (mcp.Prompt, error) {
	entry, err := pm.reg.Remove(name)
	if err != nil {
		return mcp.Prompt{}, promptNotFound(name)
	}
	return entry.def, nil
}

// ListPrompts returns all registered prompt definitions in name order.
func (pm *PromptManager) ListPrompts() []mcp.Prompt {
	entries := pm.reg.List()
	out := make([]mcp.Prompt, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value.def)
	}
	return out
}

// GetPrompt renders the named prompt. Every argument the prompt declares as
// required must be present in req.Arguments; extra or unknown keys are
// ignored. Handler failures are wrapped in a PromptError preserving the
// cause; validation and not-found errors propagate unwrapped.
func (pm *PromptManager) GetPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	if req == nil || req.Name == "" {
		return nil, errors.New("mcpservice: prompt request is missing a name")
	}
	entry, err := pm.reg.Get(req.Name)
	if err != nil {
		return nil, promptNotFound(req.Name)
	}

	for _, arg := range entry.def.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := req.Arguments[arg.Name]; !ok {
			return nil, fmt.Errorf("%w: prompt %q: missing required argument %q; include it in the arguments object of prompts/get", ErrInvalidArguments, req.Name, arg.Name)
		}
	}

	handler := entry.handler
	if handler == nil {
		handler = describePrompt(entry.def)
	}
	res, err := handler(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PromptError{Prompt: req.Name, Err: err}
	}
	if res == nil {
		return nil, &PromptError{Prompt: req.Name, Err: errors.New("handler returned no result")}
	}
	if res.Description == "" {
		res.Description = entry.def.Description
	}
	return res, nil
}

// describePrompt is the default render handler: the prompt's description as
// a single user-role text message.
func describePrompt(def mcp.Prompt) PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: def.Description,
			Messages: []mcp.PromptMessage{{
				Role:    mcp.RoleUser,
				Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: def.Description}},
			}},
		}, nil
	}
}

func promptNotFound(name string) error {
	return fmt.Errorf("%w: prompt %q is not registered; use prompts/list to discover available prompts", ErrNotFound, name)
}
