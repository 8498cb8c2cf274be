package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

func TestTypeRegistryBuiltinsProtected(t *testing.T) {
	r := NewTypeRegistry()

	err := r.remove("blog-post")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConflict)

	err = r.add(models.ContentType{Slug: "pattern", DisplayName: "Pattern Again"})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestTypeRegistryUserTypeLifecycle(t *testing.T) {
	r := NewTypeRegistry()
	before := len(r.List())

	require.NoError(t, r.add(models.ContentType{
		Slug:        "case-study",
		DisplayName: "Case Study",
		Category:    CategoryContent,
	}))

	ct, ok := r.Get("case-study")
	require.True(t, ok)
	assert.False(t, ct.IsBuiltin)
	assert.Len(t, r.List(), before+1)

	// Adding the same slug twice conflicts.
	err := r.add(models.ContentType{Slug: "case-study"})
	assert.ErrorIs(t, err, services.ErrConflict)

	// Remove restores the previous state.
	require.NoError(t, r.remove("case-study"))
	assert.Len(t, r.List(), before)

	// Removing again is NotFound.
	err = r.remove("case-study")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTypeRegistryUncategorizedDefaultsToOther(t *testing.T) {
	r := NewTypeRegistry()
	require.NoError(t, r.add(models.ContentType{Slug: "misc-note", DisplayName: "Misc Note"}))

	ct, ok := r.Get("misc-note")
	require.True(t, ok)
	assert.Equal(t, CategoryOther, ct.Category)
}

func TestGroupByCategoryOrdering(t *testing.T) {
	types := []models.ContentType{
		{Slug: "zine", Category: "custom-stuff"},
		{Slug: "pattern", Category: CategoryKnowledge},
		{Slug: "example", Category: CategoryKnowledge},
		{Slug: "newsletter", Category: CategoryContent},
		{Slug: "blog-post", Category: CategoryContent},
		{Slug: "aardvark-notes", Category: CategoryOther},
	}

	categories, grouped := GroupByCategory(types)

	// Content first, then knowledge, then everything else folded into other.
	assert.Equal(t, []string{CategoryContent, CategoryKnowledge, CategoryOther}, categories)
	assert.Equal(t, []string{"blog-post", "newsletter"}, grouped[CategoryContent])
	assert.Equal(t, []string{"example", "pattern"}, grouped[CategoryKnowledge])
	assert.Equal(t, []string{"aardvark-notes", "zine"}, grouped[CategoryOther])
}

func TestTypeRegistryListOrdering(t *testing.T) {
	r := NewTypeRegistry()
	require.NoError(t, r.add(models.ContentType{Slug: "a-custom", Category: "weird"}))

	list := r.List()
	// Content categories sort before knowledge; custom categories land at
	// the end.
	assert.Equal(t, CategoryContent, list[0].Category)
	assert.Equal(t, "a-custom", list[len(list)-1].Slug)

	// Alphabetical within a category.
	var contentSlugs []string
	for _, ct := range list {
		if ct.Category == CategoryContent {
			contentSlugs = append(contentSlugs, ct.Slug)
		}
	}
	assert.IsIncreasing(t, contentSlugs)
}

func TestSearchRejectsNonWhitelistedTableBeforeQuerying(t *testing.T) {
	// No database behind the service: validation must reject the table
	// before any query is attempted.
	svc := NewService(nil, config.HybridConfig{RRFK: 60})

	_, err := svc.HybridSearch(context.Background(), "projects", "q", "u", nil, 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = svc.VectorSearch(context.Background(), "content_types", nil, "u", 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	// Missing owner scope is rejected the same way.
	_, err = svc.HybridSearch(context.Background(), "patterns", "q", "", nil, 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestValidateTableWhitelist(t *testing.T) {
	for _, table := range SearchableTables() {
		assert.NoError(t, validateTable(table))
	}

	for _, table := range []string{"projects", "content_types", "users; DROP TABLE", ""} {
		err := validateTable(table)
		require.Error(t, err, table)
		assert.ErrorIs(t, err, services.ErrInvalidInput)
	}
}
