package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// StubService is the in-process memory provider used when
// BRAIN_MEMORY_PROVIDER=none and by tests. It keeps memories in a map and
// matches by naive word-token overlap; good enough to exercise the recall
// pipeline without an external store.
type StubService struct {
	mu       sync.RWMutex
	memories map[string]models.Memory
	events   map[string][]models.MemoryEvent
}

var _ Service = (*StubService)(nil)

// NewStub creates an empty in-process memory service.
func NewStub() *StubService {
	return &StubService{
		memories: make(map[string]models.Memory),
		events:   make(map[string][]models.MemoryEvent),
	}
}

// Name implements Service.
func (s *StubService) Name() string { return "stub" }

// Add implements Service.
func (s *StubService) Add(_ context.Context, content models.MemoryContent, userID string, metadata map[string]any) (string, error) {
	if content.IsEmpty() {
		return "", fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	id := uuid.New().String()
	s.mu.Lock()
	s.memories[id] = models.Memory{
		ID:       id,
		UserID:   userID,
		Content:  content.Flatten(),
		Metadata: metadata,
	}
	s.events[id] = append(s.events[id], models.MemoryEvent{MemoryID: id, Event: "ADD", NewValue: content.Flatten()})
	s.mu.Unlock()
	return id, nil
}

// Search implements Service.
func (s *StubService) Search(_ context.Context, query, userID string, limit int, opts SearchOptions) ([]models.MemoryMatch, error) {
	if err := checkScope(userID, opts); err != nil {
		return nil, err
	}
	owner := userID
	if opts.OverrideUserID != "" {
		owner = opts.OverrideUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.MemoryMatch
	for _, m := range s.memories {
		if owner != "" && m.UserID != owner {
			continue
		}
		score := overlapScore(query, m.Content)
		if score == 0 {
			continue
		}
		if opts.Threshold != nil && score < *opts.Threshold {
			continue
		}
		if len(opts.Categories) > 0 && !categoryMatch(m.Metadata, opts.Categories) {
			continue
		}
		matches = append(matches, models.MemoryMatch{
			ID:       m.ID,
			Source:   models.SourceSemantic,
			Content:  m.Content,
			Metadata: m.Metadata,
			Score:    score,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SearchWithFilters implements Service. The stub validates the tree but
// does not apply it: results are those of an unfiltered Search.
func (s *StubService) SearchWithFilters(ctx context.Context, query, userID string, filter map[string]any, limit int) ([]models.MemoryMatch, error) {
	if _, err := normalizeFilter(filter); err != nil {
		return nil, err
	}
	return s.Search(ctx, query, userID, limit, SearchOptions{})
}

// SearchByCategory implements Service.
func (s *StubService) SearchByCategory(ctx context.Context, query, userID, category string, limit int) ([]models.MemoryMatch, error) {
	return s.Search(ctx, query, userID, limit, SearchOptions{Extended: true, Categories: []string{category}})
}

// GetAll implements Service.
func (s *StubService) GetAll(_ context.Context, userID string, limit int) ([]models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Memory
	for _, m := range s.memories {
		if userID != "" && m.UserID != userID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByID implements Service.
func (s *StubService) GetByID(_ context.Context, id string) (*models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memories[id]; ok {
		return &m, nil
	}
	return nil, nil
}

// Count implements Service.
func (s *StubService) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.memories {
		if userID == "" || m.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Update implements Service.
func (s *StubService) Update(_ context.Context, id string, content models.MemoryContent) error {
	if content.IsEmpty() {
		return fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return nil
	}
	s.events[id] = append(s.events[id], models.MemoryEvent{
		MemoryID: id, Event: "UPDATE", OldValue: m.Content, NewValue: content.Flatten(),
	})
	m.Content = content.Flatten()
	s.memories[id] = m
	return nil
}

// History implements Service.
func (s *StubService) History(_ context.Context, id string) ([]models.MemoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]models.MemoryEvent, len(s.events[id]))
	copy(events, s.events[id])
	return events, nil
}

// Delete implements Service.
func (s *StubService) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.memories, id)
	delete(s.events, id)
	s.mu.Unlock()
	return nil
}

// DeleteAll implements Service.
func (s *StubService) DeleteAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memories {
		if userID == "" || m.UserID == userID {
			delete(s.memories, id)
			delete(s.events, id)
		}
	}
	return nil
}

// Ping implements Service.
func (s *StubService) Ping(_ context.Context) error { return nil }

func overlapScore(query, content string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	cTokens := make(map[string]bool)
	for _, t := range tokenize(content) {
		cTokens[t] = true
	}
	hits := 0
	for _, t := range qTokens {
		if cTokens[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func categoryMatch(metadata map[string]any, categories []string) bool {
	got, _ := metadata["category"].(string)
	for _, c := range categories {
		if c == got {
			return true
		}
	}
	return false
}
