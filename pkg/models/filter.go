package models

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidFilter is the sentinel for malformed metadata filter trees.
// Wrapped errors carry the JSON path locating the defect.
var ErrInvalidFilter = errors.New("invalid metadata filter")

// Filter is a validated metadata filter tree.
// Exactly one of the four variants is populated.
type Filter struct {
	Leaf map[string]any
	And  []Filter
	Or   []Filter
	Not  *Filter
}

// IsComposite reports whether the filter is an AND/OR/NOT node.
func (f Filter) IsComposite() bool {
	return f.Leaf == nil
}

// ToProvider renders the filter back into the provider wire form
// ({"AND": [...]} / {"OR": [...]} / {"NOT": {...}} / leaf mapping).
func (f Filter) ToProvider() map[string]any {
	switch {
	case f.And != nil:
		children := make([]any, len(f.And))
		for i, c := range f.And {
			children[i] = c.ToProvider()
		}
		return map[string]any{"AND": children}
	case f.Or != nil:
		children := make([]any, len(f.Or))
		for i, c := range f.Or {
			children[i] = c.ToProvider()
		}
		return map[string]any{"OR": children}
	case f.Not != nil:
		return map[string]any{"NOT": f.Not.ToProvider()}
	default:
		out := make(map[string]any, len(f.Leaf))
		for k, v := range f.Leaf {
			out[k] = v
		}
		return out
	}
}

// ParseFilter validates raw against the filter grammar and constructs the
// tagged tree in one pass. Failures wrap ErrInvalidFilter with a JSON path
// locating the defect (e.g. "AND[1].NOT").
//
// Grammar:
//   - a filter is a mapping
//   - operator keys are exactly "AND", "OR", "NOT"
//   - AND/OR values are non-empty lists of filters
//   - NOT values are a single filter mapping, not a list
//   - operator maps are non-empty
//   - leaves are arbitrary scalar matchers and are not further validated
func ParseFilter(raw map[string]any) (Filter, error) {
	return parseFilter(raw, "")
}

func parseFilter(raw map[string]any, path string) (Filter, error) {
	if len(raw) == 0 {
		return Filter{}, pathError(path, "filter must be a non-empty mapping")
	}

	// A mapping containing any operator key is a composite; operator maps
	// carry exactly one operator.
	_, hasAnd := raw["AND"]
	_, hasOr := raw["OR"]
	_, hasNot := raw["NOT"]
	if !hasAnd && !hasOr && !hasNot {
		leaf := make(map[string]any, len(raw))
		for k, v := range raw {
			leaf[k] = v
		}
		return Filter{Leaf: leaf}, nil
	}
	if len(raw) != 1 {
		return Filter{}, pathError(path, "operator map must contain exactly one operator key")
	}

	switch {
	case hasAnd:
		children, err := parseFilterList(raw["AND"], joinPath(path, "AND"))
		if err != nil {
			return Filter{}, err
		}
		return Filter{And: children}, nil
	case hasOr:
		children, err := parseFilterList(raw["OR"], joinPath(path, "OR"))
		if err != nil {
			return Filter{}, err
		}
		return Filter{Or: children}, nil
	default:
		notPath := joinPath(path, "NOT")
		child, ok := raw["NOT"].(map[string]any)
		if !ok {
			return Filter{}, pathError(notPath, "NOT value must be a single filter mapping")
		}
		parsed, err := parseFilter(child, notPath)
		if err != nil {
			return Filter{}, err
		}
		return Filter{Not: &parsed}, nil
	}
}

func parseFilterList(v any, path string) ([]Filter, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, pathError(path, "operator value must be a list of filters")
	}
	if len(list) == 0 {
		return nil, pathError(path, "operator list must be non-empty")
	}
	out := make([]Filter, 0, len(list))
	for i, el := range list {
		elPath := path + "[" + strconv.Itoa(i) + "]"
		m, ok := el.(map[string]any)
		if !ok {
			return nil, pathError(elPath, "list element must be a filter mapping")
		}
		child, err := parseFilter(m, elPath)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func pathError(path, msg string) error {
	if path == "" {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, msg)
	}
	return fmt.Errorf("%w at %s: %s", ErrInvalidFilter, path, msg)
}
