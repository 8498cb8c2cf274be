package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/llm"
)

const (
	// maxToolIterations bounds the generate→tool→generate loop.
	maxToolIterations = 8

	// maxValidationRetries bounds RetryRequest-driven regeneration.
	maxValidationRetries = 2
)

// Validator checks an agent's final text and produces the typed result.
// Returning a RetryRequest makes the runner regenerate with guidance (at
// most maxValidationRetries times); any other error is terminal.
type Validator func(output string) (any, error)

// Agent is one member of the fleet: a system prompt, a declared tool
// set, and a strict output contract.
type Agent struct {
	Name         string
	Description  string
	SystemPrompt string
	Tools        []*Tool
	Validate     Validator
	MaxTokens    int
	Model        string // per-agent model override, empty = provider default

	client      llm.Client
	toolTimeout time.Duration
}

// New creates an agent bound to an LLM client.
func New(name string, client llm.Client) *Agent {
	return &Agent{
		Name:        name,
		client:      client,
		toolTimeout: defaultToolTimeout,
	}
}

// WithToolTimeout overrides the per-tool timeout.
func (a *Agent) WithToolTimeout(d time.Duration) *Agent {
	a.toolTimeout = d
	return a
}

// Run executes the agent on one input: a bounded generate→tool loop
// followed by output validation with bounded retries. Tool failures reach
// the model as envelope values, never as raised errors.
func (a *Agent) Run(ctx context.Context, input string) (any, error) {
	messages := []llm.Message{{Role: llm.RoleUser, Content: input}}
	retries := 0

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		completion, err := a.client.Complete(ctx, llm.Request{
			System:    a.SystemPrompt,
			Messages:  messages,
			Tools:     a.toolDefs(),
			MaxTokens: a.MaxTokens,
			Model:     a.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}

		if len(completion.ToolCalls) > 0 {
			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   completion.Text,
				ToolCalls: completion.ToolCalls,
			})
			for _, call := range completion.ToolCalls {
				result, isError := a.invokeTool(ctx, call)
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    result,
					ToolCallID: call.ID,
					ToolName:   call.Name,
					IsError:    isError,
				})
			}
			continue
		}

		// Final text: validate.
		if a.Validate == nil {
			return completion.Text, nil
		}
		result, err := a.Validate(completion.Text)
		if err == nil {
			return result, nil
		}
		rr, isRetry := AsRetryRequest(err)
		if !isRetry {
			return nil, fmt.Errorf("agent %s output invalid: %w", a.Name, err)
		}
		if retries >= maxValidationRetries {
			return nil, fmt.Errorf("agent %s: %w: %s", a.Name, ErrRetriesExhausted, rr.Reason)
		}
		retries++
		slog.Debug("agent.output.retry", "agent", a.Name, "attempt", retries, "reason", rr.Reason)
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: completion.Text},
			llm.Message{Role: llm.RoleUser, Content: "Your output was rejected: " + rr.Reason + ". Produce a corrected response."},
		)
	}
	return nil, fmt.Errorf("agent %s exceeded %d tool iterations", a.Name, maxToolIterations)
}

func (a *Agent) invokeTool(ctx context.Context, call llm.ToolCall) (string, bool) {
	for _, t := range a.Tools {
		if t.Name == call.Name {
			if t.Timeout <= 0 {
				t.Timeout = a.toolTimeout
			}
			return t.Invoke(ctx, json.RawMessage(call.Arguments))
		}
	}
	envelope, _ := json.Marshal(Envelope{"error": call.Name + ": NotFound"})
	return string(envelope), true
}

func (a *Agent) toolDefs() []llm.ToolDef {
	if len(a.Tools) == 0 {
		return nil
	}
	defs := make([]llm.ToolDef, len(a.Tools))
	for i, t := range a.Tools {
		defs[i] = t.definition()
	}
	return defs
}

// ExtractJSON pulls the first top-level JSON object out of model text,
// tolerating prose and code fences around it. Validators use it before
// unmarshaling.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in output")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in output")
}
