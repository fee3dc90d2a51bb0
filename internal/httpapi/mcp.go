package httpapi

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"patentrag/internal/tool"
)

const AskToolName = "ask_patents"

type askInput struct {
	Query string `json:"query" jsonschema:"Question about patents in the internal documents"`
}

type toolInput struct {
	Input string `json:"input" jsonschema:"Plain text input for the tool"`
}

// NewMCPServer exposes the agent as one tool and each registry tool as another.
func NewMCPServer(runner Runner, tools *tool.Registry, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: "patentrag", Version: version}, nil)

	if runner != nil {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        AskToolName,
			Description: "Research a question across the internal patent documents and return a markdown summary with relevant patents",
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in askInput) (*mcp.CallToolResult, any, error) {
			res, err := runner.Run(ctx, in.Query, nil)
			if err != nil {
				return toolError("Query failed: %v", err), nil, nil
			}
			return toolText(res.Answer), nil, nil
		})
	}
	if tools != nil {
		for _, t := range tools.Tools() {
			desc := t.Descriptor()
			mcp.AddTool(srv, &mcp.Tool{Name: desc.Name, Description: desc.Description},
				func(ctx context.Context, _ *mcp.CallToolRequest, in toolInput) (*mcp.CallToolResult, any, error) {
					out, err := t.Invoke(ctx, in.Input)
					if err != nil {
						return toolError("%s failed: %v", desc.Name, err), nil, nil
					}
					return toolText(out), nil, nil
				})
		}
	}
	return srv
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
