package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// Step is one pipeline stage: an agent name and its input. When FromPrev
// is set, the previous step's result (rendered as text) becomes the
// input; the caller threads any other state explicitly.
type Step struct {
	Agent    string `json:"agent"`
	Input    string `json:"input,omitempty"`
	FromPrev bool   `json:"from_prev,omitempty"`
}

// StepError is the masked failure entry recorded for a step. Only the
// stable error kind survives — raw exception messages can leak
// connection strings or token fragments and never cross this boundary.
type StepError struct {
	Error string `json:"error"`
}

// RunPipeline executes steps sequentially against the registry and
// returns step name → result. A failed step records
// {"error": "Step failed: <Kind>"} and later steps still run; a step
// consuming a failed predecessor via FromPrev receives its masked form.
func RunPipeline(ctx context.Context, registry *Registry, steps []Step) map[string]any {
	results := make(map[string]any, len(steps))
	var prev any

	for _, step := range steps {
		input := step.Input
		if step.FromPrev {
			input = renderPrev(prev)
		}

		a, err := registry.Get(step.Agent)
		if err != nil {
			slog.Error("pipeline.step.unknown_agent", "agent", step.Agent)
			prev = StepError{Error: "Step failed: NotFound"}
			results[step.Agent] = prev
			continue
		}

		out, err := runStep(ctx, a, input)
		if err != nil {
			kind := services.Kind(err)
			slog.Error("pipeline.step.failed", "agent", step.Agent, "kind", kind, "error", err)
			prev = StepError{Error: "Step failed: " + kind}
			results[step.Agent] = prev
			continue
		}
		prev = out
		results[step.Agent] = out
	}
	return results
}

// runStep isolates panics so one step cannot abort the pipeline.
func runStep(ctx context.Context, a *Agent, input string) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return a.Run(ctx, input)
}

func renderPrev(prev any) string {
	if prev == nil {
		return ""
	}
	if s, ok := prev.(string); ok {
		return s
	}
	return fmt.Sprintf("%+v", prev)
}
