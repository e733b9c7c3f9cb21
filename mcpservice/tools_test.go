package mcpservice

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/toolgate/mcp-server-go/mcp"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newAddTool() StaticTool {
	return NewTool("add", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult(strconv.Itoa(args.A + args.B)), nil
	}, WithToolDescription("Add two integers"))
}

func TestCallTool(t *testing.T) {
	tm := NewToolManager(newAddTool())

	res, err := tm.CallTool(context.Background(), &mcp.CallToolRequest{
		Name:      "add",
		Arguments: json.RawMessage(`{"a": 2, "b": 3}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected IsError: %+v", res)
	}
	if len(res.Content) != 1 || res.Content[0].Text != "5" {
		t.Fatalf("content: %+v", res.Content)
	}
}

func TestCallToolUnknownName(t *testing.T) {
	tm := NewToolManager()
	_, err := tm.CallTool(context.Background(), &mcp.CallToolRequest{Name: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "tools/list") {
		t.Fatalf("error must point at tools/list, got %v", err)
	}
}

func TestCallToolRejectsUnknownFields(t *testing.T) {
	tm := NewToolManager(newAddTool())

	res, err := tm.CallTool(context.Background(), &mcp.CallToolRequest{
		Name:      "add",
		Arguments: json.RawMessage(`{"a": 1, "b": 2, "c": 3}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.IsError {
		t.Fatalf("unknown argument field must produce an IsError result")
	}
}

func TestCallToolAllowAdditionalProperties(t *testing.T) {
	lenient := NewTool("lenient", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult(strconv.Itoa(args.A)), nil
	}, WithToolAllowAdditionalProperties(true))
	tm := NewToolManager(lenient)

	res, err := tm.CallTool(context.Background(), &mcp.CallToolRequest{
		Name:      "lenient",
		Arguments: json.RawMessage(`{"a": 7, "extra": true}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError || res.Content[0].Text != "7" {
		t.Fatalf("result: %+v", res)
	}
}

func TestToolHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("tool exploded")
	failing := NewTool("fail", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return nil, boom
	})
	tm := NewToolManager(failing)

	_, err := tm.CallTool(context.Background(), &mcp.CallToolRequest{Name: "fail", Arguments: json.RawMessage(`{}`)})
	if !errors.Is(err, boom) {
		t.Fatalf("want handler error, got %v", err)
	}
}

func TestReflectedInputSchema(t *testing.T) {
	type nested struct {
		Tags []string `json:"tags"`
	}
	type args struct {
		Name  string  `json:"name" jsonschema:"description=Who to greet"`
		Count int     `json:"count"`
		Meta  *nested `json:"meta,omitempty"`
	}
	tool := NewTool("greet", func(ctx context.Context, a args) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	})

	schema := tool.Descriptor.InputSchema
	if schema.Type != "object" {
		t.Fatalf("schema type: %s", schema.Type)
	}
	name, ok := schema.Properties["name"]
	if !ok {
		t.Fatalf("missing name property: %+v", schema.Properties)
	}
	if name.Type != "string" || name.Description != "Who to greet" {
		t.Fatalf("name property: %+v", name)
	}
	if count := schema.Properties["count"]; count.Type != "integer" {
		t.Fatalf("count property: %+v", count)
	}
	if schema.AdditionalProperties {
		t.Fatalf("strict tools must not allow additional properties")
	}
}

func TestListToolsSorted(t *testing.T) {
	tm := NewToolManager()
	tm.AddTool(StaticTool{Descriptor: mcp.Tool{Name: "zeta"}})
	tm.AddTool(StaticTool{Descriptor: mcp.Tool{Name: "alpha"}})

	list := tm.ListTools()
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Fatalf("not sorted: %+v", list)
	}
}

func TestRemoveTool(t *testing.T) {
	tm := NewToolManager(newAddTool())
	if err := tm.RemoveTool("add"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := tm.RemoveTool("add"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double remove: %v", err)
	}
}
