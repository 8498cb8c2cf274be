// Package mcpserver exposes the agent fleet and recall pipeline as MCP
// tools over stdio, using the official go-sdk.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ryanjosebrosas/second-brain/pkg/deps"
	"github.com/ryanjosebrosas/second-brain/pkg/version"
)

// ServeStdio starts the MCP server over stdio and blocks until the
// transport closes.
func ServeStdio(ctx context.Context, d *deps.Deps) error {
	if d == nil {
		return errors.New("deps are required")
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "second-brain",
			Version: version.GitCommit,
		},
		nil,
	)

	registerTools(server, d)
	return server.Run(ctx, &mcp.StdioTransport{})
}

// textResult renders any value as a single-text-content tool result.
// Tool-layer failures are returned as the envelope inside a normal
// result, never as MCP protocol errors, so a degraded source doesn't
// break the client session.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(`{"error": "encode: Internal"}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errResult(tool, kind string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf(`{"error": "%s: %s"}`, tool, kind),
		}},
		IsError: true,
	}
}
