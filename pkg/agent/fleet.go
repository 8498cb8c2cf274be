package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/llm"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/recall"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
)

// Services bundles everything the fleet needs. Storage may be nil in
// reduced deployments; tools depending on it fail with Unavailable.
type Services struct {
	Memory   memory.Service
	Storage  *storage.Service
	Recall   *recall.Pipeline
	Embedder embedding.Embedder
	LLM      llm.Client
	Config   *config.Config
}

// BuildRegistry constructs the fixed agent fleet, applies per-agent model
// overrides from configuration, and returns the registry ready to freeze.
// Adding an agent to the fleet is a single register call here.
func BuildRegistry(svc Services) (*Registry, error) {
	registry := NewRegistry()

	fleet := []struct {
		name  string
		desc  string
		build func(Services) *Agent
	}{
		{"recall", "Retrieve relevant memories, patterns, and knowledge for a query", buildRecallAgent},
		{"learn", "Extract reusable patterns from text and store them", buildLearnAgent},
		{"create", "Generate content of a registered content type", buildCreateAgent},
		{"review", "Score content and suggest improvements", buildReviewAgent},
		{"coach", "Give actionable guidance grounded in past experience", buildCoachAgent},
		{"pmo", "Summarize project portfolio state and next steps", buildPMOAgent},
		{"clarity", "Restate vague requests and surface missing details", buildClarityAgent},
		{"synthesizer", "Merge multiple sources into coherent themes", buildSynthesizerAgent},
		{"specialist", "Answer deep single-domain questions", buildSpecialistAgent},
		{"email", "Draft emails in the user's voice", buildEmailAgent},
		{"template-builder", "Turn repeated structures into reusable templates", buildTemplateAgent},
		{"hook-writer", "Write opening hooks for content", buildHookAgent},
	}

	for _, f := range fleet {
		a := f.build(svc)
		a.Description = f.desc
		applyOverride(a, svc.Config)
		if err := registry.Register(f.name, a, f.desc); err != nil {
			return nil, err
		}
	}

	// Chief-of-staff routes across the fleet, so it is built against the
	// registry last.
	chief := buildChiefOfStaff(svc, registry)
	applyOverride(chief, svc.Config)
	if err := registry.Register("chief-of-staff", chief, "Route a request to the right agent"); err != nil {
		return nil, err
	}

	registry.Freeze()
	return registry, nil
}

func applyOverride(a *Agent, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if override, ok := cfg.AgentModelOverrides[a.Name]; ok {
		a.Model = override.Model
	}
}

func queryTool(description string, extra map[string]any) map[string]any {
	props := map[string]any{
		"query": map[string]any{"type": "string", "description": description},
		"limit": map[string]any{"type": "integer", "description": "maximum results (1-100)"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"query"},
	}
}

type searchArgs struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	Category string `json:"category"`
}

// recallTools are shared by every agent that retrieves context. The
// per-call embed cache rides on the context, so chained tool calls in one
// top-level request embed a given query only once.
func recallTools(svc Services) []*Tool {
	return []*Tool{
		{
			Name:        "quick_recall",
			Description: "Fast recall for simple lookups: semantic memory plus the patterns index.",
			Schema:      queryTool("what to look up", nil),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in searchArgs
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				cache := embedding.CacheFrom(ctx, svc.Embedder)
				return svc.Recall.QuickRecallCached(ctx, in.Query, in.Limit, cache)
			},
		},
		{
			Name:        "recall_deep",
			Description: "Broad recall over every source: semantic memory, all content tables, graph memory.",
			Schema:      queryTool("what to research", nil),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in searchArgs
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				cache := embedding.CacheFrom(ctx, svc.Embedder)
				return svc.Recall.RecallDeepCached(ctx, in.Query, in.Limit, "", cache)
			},
		},
		{
			Name:        "search_by_category",
			Description: "Semantic memory search restricted to one metadata category.",
			Schema: queryTool("what to look up", map[string]any{
				"category": map[string]any{"type": "string", "description": "metadata category to restrict to"},
			}),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in searchArgs
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				if in.Category == "" {
					return nil, fmt.Errorf("%w: category is required", services.ErrInvalidInput)
				}
				return svc.Memory.SearchByCategory(ctx, in.Query, "", in.Category, in.Limit)
			},
		},
	}
}

func buildRecallAgent(svc Services) *Agent {
	a := New("recall", svc.LLM)
	a.SystemPrompt = `You retrieve relevant memories for the user. Use quick_recall for simple
lookups and recall_deep when the question has several parts. Chain searches when
the first pass misses. Tool failures come back as {"error": ...} values — treat
them as empty sources and say so in your answer rather than giving up.
Respond with JSON: {"answer": "...", "matches": [...]}.`
	a.Tools = recallTools(svc)
	a.Validate = validateRecall
	return a
}

func buildLearnAgent(svc Services) *Agent {
	a := New("learn", svc.LLM)
	a.SystemPrompt = `You extract reusable patterns from text. A pattern has a topic, a concise
content statement, a confidence in [0,1], and keywords. Store what you extract
with save_patterns, then respond with JSON:
{"patterns": [{"topic": "...", "content": "...", "confidence": 0.6, "keywords": [...]}], "summary": "..."}.`
	a.Tools = []*Tool{
		{
			Name:        "save_patterns",
			Description: "Persist extracted patterns. Duplicate patterns reinforce confidence instead of duplicating.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"patterns": map[string]any{"type": "array", "description": "patterns to store"},
				},
				"required": []string{"patterns"},
			},
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				if svc.Storage == nil {
					return nil, fmt.Errorf("%w: storage", services.ErrUnavailable)
				}
				var in struct {
					Patterns []models.Pattern `json:"patterns"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				embeddings := make([][]float32, len(in.Patterns))
				cache := embedding.CacheFrom(ctx, svc.Embedder)
				for i, p := range in.Patterns {
					if vec, err := cache.Embed(ctx, p.Content, embedding.ModalityText); err == nil {
						embeddings[i] = vec
					}
				}
				userID := svc.Config.UserID
				if err := svc.Storage.UpsertPatterns(ctx, userID, in.Patterns, embeddings, 0.05); err != nil {
					return nil, err
				}
				return map[string]any{"stored": len(in.Patterns)}, nil
			},
		},
		{
			Name:        "save_memory",
			Description: "Store a free-form memory in semantic memory.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content":  map[string]any{"type": "string"},
					"category": map[string]any{"type": "string"},
				},
				"required": []string{"content"},
			},
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					Content  string `json:"content"`
					Category string `json:"category"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				metadata := map[string]any{}
				if in.Category != "" {
					metadata["category"] = in.Category
				}
				id, err := svc.Memory.Add(ctx, models.TextContent(in.Content), "", metadata)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id}, nil
			},
		},
	}
	a.Validate = validateLearn
	return a
}

func buildCreateAgent(svc Services) *Agent {
	a := New("create", svc.LLM)
	a.SystemPrompt = `You generate content. Call list_content_types first and follow the matching
type's writing_instructions and length_guidance exactly. Use the recall tools to
ground the piece in stored knowledge. Respond with JSON:
{"content_type": "...", "title": "...", "content": "..."}.`
	a.Tools = append(recallTools(svc), &Tool{
		Name:        "list_content_types",
		Description: "List registered content types with writing instructions, grouped by category.",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(_ context.Context, _ json.RawMessage) (any, error) {
			if svc.Storage == nil {
				return nil, fmt.Errorf("%w: storage", services.ErrUnavailable)
			}
			types := svc.Storage.Types().List()
			order, grouped := storage.GroupByCategory(types)
			return map[string]any{"types": types, "category_order": order, "grouped": grouped}, nil
		},
	})
	a.Validate = validateCreate
	return a
}

func buildReviewAgent(svc Services) *Agent {
	a := New("review", svc.LLM)
	a.SystemPrompt = `You review content against stored patterns and examples. Use the recall tools
to find the standards the user has accumulated, then score out of 10. Respond
with JSON: {"score": 8.1, "strengths": [...], "improvements": [...], "summary": "..."}.`
	a.Tools = recallTools(svc)
	a.Validate = validateReview
	return a
}

func buildCoachAgent(svc Services) *Agent {
	a := New("coach", svc.LLM)
	a.SystemPrompt = `You coach the user using their own accumulated experience. Ground every piece
of advice in recalled memories or patterns; say when nothing relevant is stored.
Respond with JSON: {"advice": "...", "actions": [...]}.`
	a.Tools = recallTools(svc)
	a.Validate = validateCoach
	return a
}

func buildPMOAgent(svc Services) *Agent {
	a := New("pmo", svc.LLM)
	a.SystemPrompt = `You are the project management office. Inspect the project portfolio and
report state, risks, and next moves. Respond with JSON:
{"summary": "...", "at_risk": [...], "recommended_next": [...]}.`
	a.Tools = []*Tool{
		{
			Name:        "list_projects",
			Description: "List the user's projects with lifecycle stages.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"include_archived": map[string]any{"type": "boolean"},
				},
			},
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				if svc.Storage == nil {
					return nil, fmt.Errorf("%w: storage", services.ErrUnavailable)
				}
				var in struct {
					IncludeArchived bool `json:"include_archived"`
				}
				_ = json.Unmarshal(args, &in)
				return svc.Storage.ListProjects(ctx, svc.Config.UserID, in.IncludeArchived)
			},
		},
		{
			Name:        "list_artifacts",
			Description: "List one project's artifacts.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
				},
				"required": []string{"project_id"},
			},
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				if svc.Storage == nil {
					return nil, fmt.Errorf("%w: storage", services.ErrUnavailable)
				}
				var in struct {
					ProjectID string `json:"project_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
				}
				return svc.Storage.ListArtifacts(ctx, in.ProjectID, svc.Config.UserID)
			},
		},
	}
	a.Validate = validatePMO
	return a
}

func buildClarityAgent(svc Services) *Agent {
	a := New("clarity", svc.LLM)
	a.SystemPrompt = `You turn vague requests into precise ones. Restate what was asked and list
the questions whose answers would unblock the work. Respond with JSON:
{"restatement": "...", "questions": [...]}.`
	a.Validate = validateClarity
	return a
}

func buildSynthesizerAgent(svc Services) *Agent {
	a := New("synthesizer", svc.LLM)
	a.SystemPrompt = `You merge multiple sources into one coherent view. Pull supporting material
with the recall tools, name the themes, and note contradictions. Respond with
JSON: {"synthesis": "...", "themes": [...]}.`
	a.Tools = recallTools(svc)
	a.Validate = validateSynthesis
	return a
}

func buildSpecialistAgent(svc Services) *Agent {
	a := New("specialist", svc.LLM)
	a.SystemPrompt = `You answer deep questions in a single domain. Recall the user's stored
knowledge first; distinguish what comes from their memory versus general
knowledge. Respond with JSON: {"answer": "...", "caveats": [...]}.`
	a.Tools = recallTools(svc)
	a.Validate = validateSpecialist
	return a
}

func buildEmailAgent(svc Services) *Agent {
	a := New("email", svc.LLM)
	a.SystemPrompt = `You draft emails in the user's voice, grounded in their stored examples.
Respond with JSON: {"subject": "...", "body": "..."}.`
	a.Tools = recallTools(svc)
	a.Validate = validateEmail
	return a
}

func buildTemplateAgent(svc Services) *Agent {
	a := New("template-builder", svc.LLM)
	a.SystemPrompt = `You turn repeated structures into reusable templates. Mark variable slots
with {{placeholder}} syntax. Respond with JSON: {"name": "...", "template": "..."}.`
	a.Tools = recallTools(svc)
	a.Validate = validateTemplate
	return a
}

func buildHookAgent(svc Services) *Agent {
	a := New("hook-writer", svc.LLM)
	a.SystemPrompt = `You write opening hooks. Produce several distinct angles: curiosity,
specificity, tension. Respond with JSON: {"hooks": ["...", "...", "..."]}.`
	a.Tools = recallTools(svc)
	a.Validate = validateHooks
	return a
}

func buildChiefOfStaff(svc Services, registry *Registry) *Agent {
	a := New("chief-of-staff", svc.LLM)
	roster := ""
	descriptions := registry.Describe()
	for _, name := range registry.Names() {
		roster += "- " + name + ": " + descriptions[name] + "\n"
	}
	a.SystemPrompt = `You route requests to the right agent. Available agents:
` + roster + `
Respond with JSON: {"agent": "...", "input": "...", "rationale": "..."} where
input is the request rephrased for the chosen agent.`
	a.Validate = validateRoute(registry)
	return a
}
