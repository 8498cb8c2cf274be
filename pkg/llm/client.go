// Package llm provides the LLM provider clients used by agents: an
// Anthropic client and an OpenAI-compatible client covering OpenAI, Groq,
// and Ollama. Provider selection and the fallback chain live here;
// per-agent model overrides are applied in package agent.
package llm

import (
	"context"
	"fmt"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// Conversation message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is the provider-neutral conversation message.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // for assistant messages
	ToolCallID string     // for tool result messages
	ToolName   string     // for tool result messages
	IsError    bool       // for tool result messages
}

// ToolDef describes a tool available to the model.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema for the arguments object
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// Request is a single completion request.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDef
	MaxTokens int
	Model     string // empty = provider default
}

// Completion is the model's reply: text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is the narrow completion interface agents depend on.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Provider() config.ModelProvider
}

// NewClient builds the client for one provider from configuration.
func NewClient(provider config.ModelProvider, cfg *config.Config) (Client, error) {
	switch provider {
	case config.ModelProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", services.ErrInvalidInput)
		}
		return newAnthropicClient(cfg.AnthropicAPIKey), nil
	case config.ModelProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", services.ErrInvalidInput)
		}
		return newOpenAIClient(provider, cfg.OpenAIAPIKey, "", defaultOpenAIModel), nil
	case config.ModelProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: GROQ_API_KEY not set", services.ErrInvalidInput)
		}
		return newOpenAIClient(provider, cfg.GroqAPIKey, groqBaseURL, defaultGroqModel), nil
	case config.ModelProviderOllamaLocal, config.ModelProviderOllamaCloud:
		host := cfg.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		return newOpenAIClient(provider, "ollama", host+"/v1", defaultOllamaModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", services.ErrInvalidInput, provider)
	}
}

// Resolve picks the effective provider. "auto" selects the first provider
// with credentials in the fixed order anthropic → openai → groq → ollama.
func Resolve(cfg *config.Config) (config.ModelProvider, error) {
	if cfg.ModelProvider != config.ModelProviderAuto {
		return cfg.ModelProvider, nil
	}
	switch {
	case cfg.AnthropicAPIKey != "":
		return config.ModelProviderAnthropic, nil
	case cfg.OpenAIAPIKey != "":
		return config.ModelProviderOpenAI, nil
	case cfg.GroqAPIKey != "":
		return config.ModelProviderGroq, nil
	default:
		return config.ModelProviderOllamaLocal, nil
	}
}
