package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// Content-type categories in their fixed display order: content
// categories first, then knowledge categories, then everything else.
const (
	CategoryContent   = "content"
	CategoryKnowledge = "knowledge"
	CategoryOther     = "other"
)

var categoryOrder = map[string]int{
	CategoryContent:   0,
	CategoryKnowledge: 1,
	CategoryOther:     2,
}

// builtinContentTypes is the fixed built-in registry. Built-ins are
// immutable and protected from deletion.
var builtinContentTypes = map[string]models.ContentType{
	"blog-post": {
		Slug: "blog-post", DisplayName: "Blog Post", Category: CategoryContent, IsBuiltin: true,
		Description:         "Long-form article for a blog or publication.",
		WritingInstructions: "Open with a hook, develop one idea per section, close with a takeaway.",
		LengthGuidance:      "800-1500 words",
	},
	"linkedin-post": {
		Slug: "linkedin-post", DisplayName: "LinkedIn Post", Category: CategoryContent, IsBuiltin: true,
		Description:         "Professional social post optimized for the LinkedIn feed.",
		WritingInstructions: "Strong first line, short paragraphs, end with a question or call to action.",
		LengthGuidance:      "150-300 words",
	},
	"newsletter": {
		Slug: "newsletter", DisplayName: "Newsletter Issue", Category: CategoryContent, IsBuiltin: true,
		Description:         "Recurring email issue for subscribers.",
		WritingInstructions: "Personal tone, scannable sections, one primary link or ask.",
		LengthGuidance:      "500-800 words",
	},
	"email": {
		Slug: "email", DisplayName: "Email", Category: CategoryContent, IsBuiltin: true,
		Description:         "One-to-one or broadcast email.",
		WritingInstructions: "Subject under 60 chars, single clear purpose, explicit next step.",
		LengthGuidance:      "under 300 words",
	},
	"hook": {
		Slug: "hook", DisplayName: "Hook", Category: CategoryContent, IsBuiltin: true,
		Description:         "Opening line or angle for a larger piece.",
		WritingInstructions: "Lead with tension or specificity; no throat-clearing.",
		LengthGuidance:      "1-2 sentences",
	},
	"template": {
		Slug: "template", DisplayName: "Template", Category: CategoryContent, IsBuiltin: true,
		Description:         "Reusable fill-in-the-blanks structure.",
		WritingInstructions: "Mark variable slots clearly; include one worked example.",
		LengthGuidance:      "as needed",
	},
	"pattern": {
		Slug: "pattern", DisplayName: "Pattern", Category: CategoryKnowledge, IsBuiltin: true,
		Description:         "Reusable approach extracted from experience.",
		WritingInstructions: "Name the context, the approach, and when not to apply it.",
		LengthGuidance:      "under 200 words",
	},
	"example": {
		Slug: "example", DisplayName: "Example", Category: CategoryKnowledge, IsBuiltin: true,
		Description:         "Concrete worked instance, often code.",
		WritingInstructions: "Self-contained; state what it demonstrates in the first line.",
		LengthGuidance:      "as needed",
	},
	"knowledge": {
		Slug: "knowledge", DisplayName: "Knowledge", Category: CategoryKnowledge, IsBuiltin: true,
		Description:         "Reference fact or explanation worth keeping.",
		WritingInstructions: "Lead with the claim, then the evidence or source.",
		LengthGuidance:      "under 300 words",
	},
	"experience": {
		Slug: "experience", DisplayName: "Experience", Category: CategoryKnowledge, IsBuiltin: true,
		Description:         "First-hand account of something tried.",
		WritingInstructions: "What was attempted, what happened, what to do differently.",
		LengthGuidance:      "under 300 words",
	},
}

// TypeRegistry is the pluggable content-type registry: the fixed built-in
// set plus user-added types loaded from storage at startup. Built-ins are
// protected; user types may be added and removed at runtime.
type TypeRegistry struct {
	mu   sync.RWMutex
	user map[string]models.ContentType
}

// NewTypeRegistry creates a registry holding only the built-ins.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{user: make(map[string]models.ContentType)}
}

// Get returns the config for one slug.
func (r *TypeRegistry) Get(slug string) (models.ContentType, bool) {
	if ct, ok := builtinContentTypes[slug]; ok {
		return ct, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.user[slug]
	return ct, ok
}

// List returns the union of built-in and user types with full configs,
// sorted by category order then slug.
func (r *TypeRegistry) List() []models.ContentType {
	r.mu.RLock()
	out := make([]models.ContentType, 0, len(builtinContentTypes)+len(r.user))
	for _, ct := range builtinContentTypes {
		out = append(out, ct)
	}
	for _, ct := range r.user {
		out = append(out, ct)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ci, cj := categoryRank(out[i].Category), categoryRank(out[j].Category)
		if ci != cj {
			return ci < cj
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// GroupByCategory returns an ordered mapping category → sorted slugs.
// Category order is fixed (content, knowledge, other); slugs sort
// alphabetically within each category.
func GroupByCategory(types []models.ContentType) ([]string, map[string][]string) {
	grouped := make(map[string][]string)
	for _, ct := range types {
		cat := ct.Category
		if _, known := categoryOrder[cat]; !known {
			cat = CategoryOther
		}
		grouped[cat] = append(grouped[cat], ct.Slug)
	}

	var categories []string
	for cat := range grouped {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categoryOrder[categories[i]] < categoryOrder[categories[j]]
	})
	for _, cat := range categories {
		sort.Strings(grouped[cat])
	}
	return categories, grouped
}

func categoryRank(cat string) int {
	if rank, ok := categoryOrder[cat]; ok {
		return rank
	}
	return categoryOrder[CategoryOther]
}

// add registers a user type in memory. Fails with Conflict when the slug
// collides with a built-in or an existing user type.
func (r *TypeRegistry) add(ct models.ContentType) error {
	if ct.Slug == "" {
		return services.NewValidationError("slug", "required")
	}
	if _, ok := builtinContentTypes[ct.Slug]; ok {
		return fmt.Errorf("%w: %q is a built-in content type", services.ErrConflict, ct.Slug)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.user[ct.Slug]; ok {
		return fmt.Errorf("%w: content type %q already exists", services.ErrConflict, ct.Slug)
	}
	ct.IsBuiltin = false
	if ct.Category == "" {
		ct.Category = CategoryOther
	}
	r.user[ct.Slug] = ct
	return nil
}

// remove unregisters a user type. Built-ins fail with Conflict; unknown
// slugs fail with NotFound.
func (r *TypeRegistry) remove(slug string) error {
	if _, ok := builtinContentTypes[slug]; ok {
		return fmt.Errorf("%w: cannot delete built-in content type %q", services.ErrConflict, slug)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.user[slug]; !ok {
		return fmt.Errorf("%w: content type %q", services.ErrNotFound, slug)
	}
	delete(r.user, slug)
	return nil
}

// seed loads a user type without storage I/O (startup path). Collisions
// with built-ins are skipped with a warning instead of failing startup.
func (r *TypeRegistry) seed(ct models.ContentType) {
	if err := r.add(ct); err != nil {
		slog.Warn("content_types.seed.skipped", "slug", ct.Slug, "error", err)
	}
}

// LoadContentTypes populates the registry with the owner's stored user
// types. Called once at startup.
func (s *Service) LoadContentTypes(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.client.pool.Query(ctx,
		`SELECT slug, display_name, category, description, writing_instructions, length_guidance, ui_config
		 FROM content_types WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to load content types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct models.ContentType
		var uiConfig []byte
		if err := rows.Scan(&ct.Slug, &ct.DisplayName, &ct.Category, &ct.Description,
			&ct.WritingInstructions, &ct.LengthGuidance, &uiConfig); err != nil {
			return fmt.Errorf("failed to scan content type: %w", err)
		}
		if len(uiConfig) > 0 {
			if err := json.Unmarshal(uiConfig, &ct.UIConfig); err != nil {
				slog.Warn("content_types.ui_config.invalid", "slug", ct.Slug, "error", err)
			}
		}
		s.types.seed(ct)
	}
	return rows.Err()
}

// AddContentType registers and persists a user content type.
func (s *Service) AddContentType(ctx context.Context, userID string, ct models.ContentType) error {
	if err := s.types.add(ct); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	uiConfig, err := json.Marshal(ct.UIConfig)
	if err != nil {
		return fmt.Errorf("failed to encode ui_config: %w", err)
	}
	_, err = s.client.pool.Exec(ctx,
		`INSERT INTO content_types (slug, display_name, category, description, writing_instructions, length_guidance, ui_config, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ct.Slug, ct.DisplayName, ct.Category, ct.Description,
		ct.WritingInstructions, ct.LengthGuidance, uiConfig, userID,
	)
	if err != nil {
		// Keep registry and storage consistent.
		_ = s.types.remove(ct.Slug)
		return fmt.Errorf("failed to persist content type: %w", err)
	}
	return nil
}

// RemoveContentType unregisters and deletes a user content type.
// Built-ins fail with Conflict.
func (s *Service) RemoveContentType(ctx context.Context, userID, slug string) error {
	if err := s.types.remove(slug); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.client.pool.Exec(ctx,
		`DELETE FROM content_types WHERE slug = $1 AND user_id = $2`, slug, userID)
	if err != nil {
		return fmt.Errorf("failed to delete content type: %w", err)
	}
	return nil
}
