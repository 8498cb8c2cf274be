package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterLeaf(t *testing.T) {
	f, err := ParseFilter(map[string]any{"category": "pattern", "tag": "auth"})
	require.NoError(t, err)
	assert.False(t, f.IsComposite())
	assert.Equal(t, "pattern", f.Leaf["category"])
}

func TestParseFilterComposite(t *testing.T) {
	raw := map[string]any{
		"AND": []any{
			map[string]any{"category": "pattern"},
			map[string]any{"OR": []any{
				map[string]any{"tag": "auth"},
				map[string]any{"tag": "api"},
			}},
		},
	}

	f, err := ParseFilter(raw)
	require.NoError(t, err)
	require.Len(t, f.And, 2)
	assert.Equal(t, "pattern", f.And[0].Leaf["category"])
	require.Len(t, f.And[1].Or, 2)

	// Round-trips back to the provider wire form.
	assert.Equal(t, raw, f.ToProvider())
}

func TestParseFilterNot(t *testing.T) {
	f, err := ParseFilter(map[string]any{
		"NOT": map[string]any{"tag": "deprecated"},
	})
	require.NoError(t, err)
	require.NotNil(t, f.Not)
	assert.Equal(t, "deprecated", f.Not.Leaf["tag"])
}

func TestParseFilterRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		path string
	}{
		{
			name: "empty AND list",
			raw:  map[string]any{"AND": []any{}},
			path: "AND",
		},
		{
			name: "empty OR list",
			raw:  map[string]any{"OR": []any{}},
			path: "OR",
		},
		{
			name: "AND value not a list",
			raw:  map[string]any{"AND": map[string]any{"a": 1}},
			path: "AND",
		},
		{
			name: "NOT with list value",
			raw:  map[string]any{"NOT": []any{map[string]any{"a": 1}}},
			path: "NOT",
		},
		{
			name: "non-mapping list element",
			raw:  map[string]any{"AND": []any{"oops"}},
			path: "AND[0]",
		},
		{
			name: "empty mapping",
			raw:  map[string]any{},
		},
		{
			name: "operator mixed with leaf keys",
			raw:  map[string]any{"AND": []any{map[string]any{"a": 1}}, "tag": "x"},
		},
		{
			name: "nested defect carries full path",
			raw: map[string]any{"AND": []any{
				map[string]any{"category": "pattern"},
				map[string]any{"OR": []any{}},
			}},
			path: "AND[1].OR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			if tt.path != "" {
				assert.Contains(t, err.Error(), tt.path)
			}
		})
	}
}

func TestValidTransition(t *testing.T) {
	assert.True(t, ValidTransition(StagePlanning, StageExecuting))
	assert.True(t, ValidTransition(StagePlanning, StageComplete))
	assert.True(t, ValidTransition(StageComplete, StageArchived))
	assert.True(t, ValidTransition(StagePlanning, StageArchived))

	assert.False(t, ValidTransition(StageExecuting, StagePlanning))
	assert.False(t, ValidTransition(StageComplete, StageLearning))
	assert.False(t, ValidTransition(StageArchived, StagePlanning))
}

func TestNextStage(t *testing.T) {
	assert.Equal(t, StageExecuting, NextStage(StagePlanning))
	assert.Equal(t, StageComplete, NextStage(StageLearning))
	assert.Equal(t, LifecycleStage(""), NextStage(StageComplete))
	assert.Equal(t, LifecycleStage(""), NextStage(StageArchived))
}

func TestMemoryContentFlatten(t *testing.T) {
	assert.Equal(t, "hello", TextContent("hello").Flatten())

	blocks := BlockContent([]ContentBlock{
		{Type: BlockText, Text: "diagram of the auth flow"},
		{Type: BlockImage, URL: "https://example.com/auth.png"},
	})
	assert.Equal(t, "diagram of the auth flow\nimage_url:https://example.com/auth.png", blocks.Flatten())
	assert.True(t, MemoryContent{}.IsEmpty())
}
