package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// Structured output contracts for the fleet. Each agent's validator
// parses the model text into its result type and rejects violations with
// a RetryRequest so the runner regenerates.

// RecallResult is the recall agent's answer with provenance.
type RecallResult struct {
	Answer  string               `json:"answer"`
	Matches []models.MemoryMatch `json:"matches,omitempty"`
}

// LearnResult carries the patterns the learn agent extracted.
type LearnResult struct {
	Patterns []models.Pattern `json:"patterns"`
	Summary  string           `json:"summary"`
}

// CreateResult is a generated piece of content.
type CreateResult struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// ReviewResult scores a piece of content out of 10.
type ReviewResult struct {
	Score        float64  `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}

// RouteResult is the chief-of-staff's dispatch decision.
type RouteResult struct {
	Agent     string `json:"agent"`
	Input     string `json:"input"`
	Rationale string `json:"rationale"`
}

// CoachResult is actionable guidance from the coach agent.
type CoachResult struct {
	Advice  string   `json:"advice"`
	Actions []string `json:"actions"`
}

// PMOResult summarizes project portfolio state.
type PMOResult struct {
	Summary         string   `json:"summary"`
	AtRisk          []string `json:"at_risk,omitempty"`
	RecommendedNext []string `json:"recommended_next,omitempty"`
}

// ClarityResult restates a vague request and asks what is missing.
type ClarityResult struct {
	Restatement string   `json:"restatement"`
	Questions   []string `json:"questions"`
}

// SynthesisResult merges multiple inputs into themes.
type SynthesisResult struct {
	Synthesis string   `json:"synthesis"`
	Themes    []string `json:"themes"`
}

// SpecialistResult is a deep single-domain answer.
type SpecialistResult struct {
	Answer  string   `json:"answer"`
	Caveats []string `json:"caveats,omitempty"`
}

// EmailResult is a drafted email.
type EmailResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateResult is a reusable fill-in structure.
type TemplateResult struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// HookResult is a set of opening lines.
type HookResult struct {
	Hooks []string `json:"hooks"`
}

// decodeInto extracts the JSON object from model text and unmarshals it
// strictly. Failures become RetryRequests with a reason the model can
// act on.
func decodeInto(text string, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return NewRetryRequest("respond with a single JSON object, no surrounding prose")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return NewRetryRequest(fmt.Sprintf("output JSON did not match the schema: %v", err))
	}
	return nil
}

func validateRecall(text string) (any, error) {
	var out RecallResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Answer == "" {
		return nil, NewRetryRequest("answer must not be empty")
	}
	return out, nil
}

func validateLearn(text string) (any, error) {
	var out LearnResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if len(out.Patterns) == 0 {
		return nil, NewRetryRequest("extract at least one pattern")
	}
	for i, p := range out.Patterns {
		if p.Topic == "" || p.Content == "" {
			return nil, NewRetryRequest(fmt.Sprintf("pattern %d is missing topic or content", i))
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, NewRetryRequest(fmt.Sprintf("pattern %d confidence %v is outside [0,1]", i, p.Confidence))
		}
	}
	return out, nil
}

func validateCreate(text string) (any, error) {
	var out CreateResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Content == "" {
		return nil, NewRetryRequest("content must not be empty")
	}
	if out.ContentType == "" {
		return nil, NewRetryRequest("content_type must name the type being produced")
	}
	return out, nil
}

func validateReview(text string) (any, error) {
	var out ReviewResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Score < 0 || out.Score > 10 {
		return nil, NewRetryRequest(fmt.Sprintf("score %v is outside [0,10]", out.Score))
	}
	if len(out.Improvements) == 0 {
		return nil, NewRetryRequest("list at least one improvement")
	}
	return out, nil
}

func validateRoute(registry *Registry) Validator {
	return func(text string) (any, error) {
		var out RouteResult
		if err := decodeInto(text, &out); err != nil {
			return nil, err
		}
		if _, err := registry.Get(out.Agent); err != nil {
			return nil, NewRetryRequest(fmt.Sprintf("agent %q is not registered; choose one of: %s",
				out.Agent, strings.Join(registry.Names(), ", ")))
		}
		return out, nil
	}
}

func validateCoach(text string) (any, error) {
	var out CoachResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Advice == "" {
		return nil, NewRetryRequest("advice must not be empty")
	}
	return out, nil
}

func validatePMO(text string) (any, error) {
	var out PMOResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Summary == "" {
		return nil, NewRetryRequest("summary must not be empty")
	}
	return out, nil
}

func validateClarity(text string) (any, error) {
	var out ClarityResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, NewRetryRequest("ask at least one clarifying question")
	}
	return out, nil
}

func validateSynthesis(text string) (any, error) {
	var out SynthesisResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Synthesis == "" {
		return nil, NewRetryRequest("synthesis must not be empty")
	}
	return out, nil
}

func validateSpecialist(text string) (any, error) {
	var out SpecialistResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Answer == "" {
		return nil, NewRetryRequest("answer must not be empty")
	}
	return out, nil
}

func validateEmail(text string) (any, error) {
	var out EmailResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Subject == "" || out.Body == "" {
		return nil, NewRetryRequest("both subject and body are required")
	}
	if len(out.Subject) > 120 {
		return nil, NewRetryRequest("subject must not exceed 120 characters")
	}
	return out, nil
}

func validateTemplate(text string) (any, error) {
	var out TemplateResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.Template == "" {
		return nil, NewRetryRequest("template must not be empty")
	}
	if !strings.Contains(out.Template, "{{") {
		return nil, NewRetryRequest("mark variable slots with {{placeholder}} syntax")
	}
	return out, nil
}

func validateHooks(text string) (any, error) {
	var out HookResult
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if len(out.Hooks) < 3 {
		return nil, NewRetryRequest("produce at least three hook options")
	}
	return out, nil
}
