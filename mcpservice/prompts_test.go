package mcpservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toolgate/mcp-server-go/mcp"
)

func greetingPrompt() mcp.Prompt {
	return mcp.Prompt{
		Name:        "greeting",
		Description: "Greet someone by name",
		Arguments: []mcp.PromptArgument{
			{Name: "name", Required: true},
			{Name: "tone", Required: false},
		},
	}
}

func greetingHandler(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Messages: []mcp.PromptMessage{{
			Role:    mcp.RoleUser,
			Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: "Hello, " + req.Arguments["name"]}},
		}},
	}, nil
}

func TestGetPromptRendersHandler(t *testing.T) {
	pm := NewPromptManager()
	pm.AddPrompt(greetingPrompt(), greetingHandler)

	res, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Name:      "greeting",
		Arguments: map[string]string{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Content[0].Text != "Hello, Ada" {
		t.Fatalf("messages: %+v", res.Messages)
	}
	// Description backfilled from the definition.
	if res.Description != "Greet someone by name" {
		t.Fatalf("description: %q", res.Description)
	}
}

func TestGetPromptUnknownName(t *testing.T) {
	pm := NewPromptManager()
	_, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{Name: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "prompts/list") {
		t.Fatalf("error must point at prompts/list, got %v", err)
	}
}

func TestGetPromptMissingRequiredArgument(t *testing.T) {
	pm := NewPromptManager()
	pm.AddPrompt(greetingPrompt(), greetingHandler)

	_, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{Name: "greeting"})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("want ErrInvalidArguments, got %v", err)
	}
	if !strings.Contains(err.Error(), `"name"`) {
		t.Fatalf("error must name the missing argument, got %v", err)
	}

	// Optional arguments may be absent; unknown keys are ignored.
	_, err = pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Name:      "greeting",
		Arguments: map[string]string{"name": "Ada", "unknown": "x"},
	})
	if err != nil {
		t.Fatalf("optional/unknown args: %v", err)
	}
}

func TestGetPromptDefaultHandler(t *testing.T) {
	pm := NewPromptManager()
	pm.AddPrompt(mcp.Prompt{Name: "plain", Description: "Just a description"}, nil)

	res, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{Name: "plain"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("want 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Role != mcp.RoleUser || msg.Content[0].Text != "Just a description" {
		t.Fatalf("default message: %+v", msg)
	}
}

func TestGetPromptHandlerFailureWrapped(t *testing.T) {
	pm := NewPromptManager()
	boom := errors.New("render exploded")
	pm.AddPrompt(mcp.Prompt{Name: "broken"}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return nil, boom
	})

	_, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{Name: "broken"})
	var perr *PromptError
	if !errors.As(err, &perr) {
		t.Fatalf("want PromptError, got %v", err)
	}
	if perr.Prompt != "broken" || !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestGetPromptHandlerNotFoundPassesThrough(t *testing.T) {
	pm := NewPromptManager()
	pm.AddPrompt(mcp.Prompt{Name: "proxy"}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return nil, promptNotFound("upstream")
	})

	_, err := pm.GetPrompt(context.Background(), &mcp.GetPromptRequest{Name: "proxy"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound pass-through, got %v", err)
	}
	var perr *PromptError
	if errors.As(err, &perr) {
		t.Fatalf("not-found must not be wrapped in PromptError")
	}
}

func TestAddUpdateRemovePrompt(t *testing.T) {
	pm := NewPromptManager()

	if err := pm.UpdatePrompt(mcp.Prompt{Name: "ghost"}, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	pm.AddPrompt(mcp.Prompt{Name: "p", Description: "v1"}, nil)
	pm.AddPrompt(mcp.Prompt{Name: "p", Description: "v2"}, nil)
	if list := pm.ListPrompts(); len(list) != 1 || list[0].Description != "v2" {
		t.Fatalf("add replaces: %+v", list)
	}

	if err := pm.UpdatePrompt(mcp.Prompt{Name: "p", Description: "v3"}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	prior, err := pm.RemovePrompt("p")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if prior.Description != "v3" {
		t.Fatalf("prior: %+v", prior)
	}
	if _, err := pm.RemovePrompt("p"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double remove: %v", err)
	}
}

func TestListPromptsSorted(t *testing.T) {
	pm := NewPromptManager()
	pm.AddPrompt(mcp.Prompt{Name: "zeta"}, nil)
	pm.AddPrompt(mcp.Prompt{Name: "alpha"}, nil)

	list := pm.ListPrompts()
	if list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Fatalf("not sorted: %+v", list)
	}
}
