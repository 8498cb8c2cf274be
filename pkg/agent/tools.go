package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/llm"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// defaultToolTimeout bounds a single tool invocation.
const defaultToolTimeout = 30 * time.Second

// Tool is one callable exposed to an agent. Handlers return a plain Go
// value (marshaled to JSON for the model) or an error, which the
// invocation layer converts into the tool-error envelope — handlers never
// leak raw errors to the model.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     func(ctx context.Context, args json.RawMessage) (any, error)
	Timeout     time.Duration
}

// Envelope is the structured value returned in place of an exception
// from any tool an agent invokes: {"error": "<tool>: <Kind>"}.
type Envelope map[string]string

// Invoke runs the tool and always returns a JSON document: the handler's
// result on success, the tool-error envelope on any failure (error,
// panic, or timeout). The envelope carries only the stable error kind —
// raw messages can contain connection strings or token fragments.
func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) (result string, isError bool) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := t.invoke(ctx, args)
	if err != nil {
		kind := services.Kind(err)
		slog.Warn("agent.tool.failed", "tool", t.Name, "kind", kind, "error", err)
		envelope, _ := json.Marshal(Envelope{"error": fmt.Sprintf("%s: %s", t.Name, kind)})
		return string(envelope), true
	}

	data, err := json.Marshal(out)
	if err != nil {
		slog.Error("agent.tool.encode_failed", "tool", t.Name, "error", err)
		envelope, _ := json.Marshal(Envelope{"error": t.Name + ": Internal"})
		return string(envelope), true
	}
	return string(data), false
}

func (t *Tool) invoke(ctx context.Context, args json.RawMessage) (any, error) {
	type invocation struct {
		out any
		err error
	}
	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: fmt.Errorf("tool %s panicked: %v", t.Name, r)}
			}
		}()
		o, e := t.Handler(ctx, args)
		done <- invocation{out: o, err: e}
	}()

	select {
	case inv := <-done:
		return inv.out, inv.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: tool %s", services.ErrTimeout, t.Name)
	}
}

// definition renders the tool for the LLM provider.
func (t *Tool) definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        t.Name,
		Description: t.Description,
		Schema:      t.Schema,
	}
}
