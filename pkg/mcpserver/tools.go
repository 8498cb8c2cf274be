package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ryanjosebrosas/second-brain/pkg/agent"
	"github.com/ryanjosebrosas/second-brain/pkg/deps"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/recall"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
)

// withCallCache attaches a fresh per-call embed cache. Every MCP tool
// dispatch is one top-level call.
func withCallCache(ctx context.Context, d *deps.Deps) context.Context {
	return embedding.WithCache(ctx, embedding.NewCache(d.Embedder))
}

// RecallInput is the input for the recall tools.
type RecallInput struct {
	Query       string `json:"query"`
	Limit       int    `json:"limit,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// SaveMemoryInput stores one memory.
type SaveMemoryInput struct {
	Content  string         `json:"content"`
	Category string         `json:"category,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DeleteMemoryInput removes one memory by id.
type DeleteMemoryInput struct {
	ID string `json:"id"`
}

// AgentInput runs one agent on free-form input.
type AgentInput struct {
	Input string `json:"input"`
}

// ProjectInput creates a project.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// AdvanceInput advances a project's lifecycle stage.
type AdvanceInput struct {
	ProjectID string `json:"project_id"`
	Stage     string `json:"stage,omitempty"`
}

// EmptyInput is used by tools that take no arguments.
type EmptyInput struct{}

func registerTools(server *mcp.Server, d *deps.Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "quick_recall",
		Description: "Fast recall for simple lookups. Complex queries are routed to deep recall automatically.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RecallInput) (*mcp.CallToolResult, any, error) {
		ctx = withCallCache(ctx, d)
		cache := embedding.CacheFrom(ctx, d.Embedder)
		matches, err := d.Recall.QuickRecallCached(ctx, in.Query, in.Limit, cache)
		if err != nil {
			return errResult("quick_recall", services.Kind(err)), nil, nil
		}
		return textResult(map[string]any{
			"matches":   matches,
			"formatted": recall.Format(matches),
		}), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_deep",
		Description: "Broad recall over semantic memory, all content tables, and graph memory, with optional rerank instruction.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RecallInput) (*mcp.CallToolResult, any, error) {
		ctx = withCallCache(ctx, d)
		cache := embedding.CacheFrom(ctx, d.Embedder)
		matches, err := d.Recall.RecallDeepCached(ctx, in.Query, in.Limit, in.Instruction, cache)
		if err != nil {
			return errResult("recall_deep", services.Kind(err)), nil, nil
		}
		return textResult(map[string]any{
			"matches":   matches,
			"formatted": recall.Format(matches),
		}), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_memory",
		Description: "Store a memory in the semantic store with optional category metadata.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SaveMemoryInput) (*mcp.CallToolResult, any, error) {
		metadata := in.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		if in.Category != "" {
			metadata["category"] = in.Category
		}
		id, err := d.Memory.Add(ctx, models.TextContent(in.Content), "", metadata)
		if err != nil {
			return errResult("save_memory", services.Kind(err)), nil, nil
		}
		return textResult(map[string]string{"id": id}), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_memory",
		Description: "Delete one memory by id.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in DeleteMemoryInput) (*mcp.CallToolResult, any, error) {
		if in.ID == "" {
			return errResult("delete_memory", "InvalidInput"), nil, nil
		}
		if err := d.Memory.Delete(ctx, in.ID); err != nil {
			return errResult("delete_memory", services.Kind(err)), nil, nil
		}
		return textResult(map[string]string{"status": "deleted"}), nil, nil
	})

	// One MCP tool per fleet agent.
	for _, name := range d.Registry.Names() {
		name := name
		descriptions := d.Registry.Describe()
		mcp.AddTool(server, &mcp.Tool{
			Name:        "agent_" + name,
			Description: descriptions[name],
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in AgentInput) (*mcp.CallToolResult, any, error) {
			a, err := d.Registry.Get(name)
			if err != nil {
				return errResult(name, "NotFound"), nil, nil
			}
			ctx = withCallCache(ctx, d)
			result, err := a.Run(ctx, in.Input)
			if err != nil {
				if _, retry := agent.AsRetryRequest(err); retry {
					return errResult(name, "InvalidInput"), nil, nil
				}
				return errResult(name, services.Kind(err)), nil, nil
			}
			return textResult(result), nil, nil
		})
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_content_types",
		Description: "List registered content types grouped by category.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
		types := d.Storage.Types().List()
		order, grouped := storage.GroupByCategory(types)
		return textResult(map[string]any{
			"types":          types,
			"category_order": order,
			"grouped":        grouped,
		}), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects with lifecycle stages.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
		projects, err := d.Storage.ListProjects(ctx, d.Config.UserID, false)
		if err != nil {
			return errResult("list_projects", services.Kind(err)), nil, nil
		}
		return textResult(projects), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a project in the planning stage.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, any, error) {
		p, err := d.Storage.CreateProject(ctx, storage.CreateProjectRequest{
			UserID:      d.Config.UserID,
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
		})
		if err != nil {
			return errResult("create_project", services.Kind(err)), nil, nil
		}
		return textResult(p), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "advance_project",
		Description: "Advance a project to its next lifecycle stage, or to an explicit stage.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in AdvanceInput) (*mcp.CallToolResult, any, error) {
		p, err := d.Storage.AdvanceProject(ctx, in.ProjectID, d.Config.UserID, models.LifecycleStage(in.Stage))
		if err != nil {
			return errResult("advance_project", services.Kind(err)), nil, nil
		}
		return textResult(p), nil, nil
	})
}
