package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// searchableTables is the whitelist for hybrid and vector search.
// Requests against any other table fail with InvalidInput before a query
// is issued.
var searchableTables = map[string]bool{
	"patterns":    true,
	"examples":    true,
	"knowledge":   true,
	"experiences": true,
}

// SearchableTables returns the whitelist in a stable order.
func SearchableTables() []string {
	return []string{"patterns", "examples", "knowledge", "experiences"}
}

// queryTimeout bounds every single statement issued by the service.
const queryTimeout = 10 * time.Second

// Service exposes CRUD over the structured tables and the hybrid search
// RPCs. Every query is scoped to the owner: table queries carry a user_id
// filter, and artifact queries run after an ownership check on their
// project. The database additionally
// enforces RLS but the application never relies on it for correctness.
type Service struct {
	client *Client
	hybrid config.HybridConfig
	types  *TypeRegistry
}

// NewService creates the storage service over an existing client.
func NewService(client *Client, hybrid config.HybridConfig) *Service {
	return &Service{
		client: client,
		hybrid: hybrid,
		types:  NewTypeRegistry(),
	}
}

// Types returns the content-type registry.
func (s *Service) Types() *TypeRegistry { return s.types }

func validateTable(table string) error {
	if !searchableTables[table] {
		return fmt.Errorf("%w: table %q is not searchable", services.ErrInvalidInput, table)
	}
	return nil
}

// HybridSearch calls the database RPC fusing BM25 and pgvector rankings
// via Reciprocal Rank Fusion. Results carry the fused score.
func (s *Service) HybridSearch(ctx context.Context, table, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, services.NewValidationError("user_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.client.pool.Query(ctx,
		`SELECT id, content, metadata, fused_score
		 FROM hybrid_search($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		table, query, pgvector.NewVector(embedding), userID, limit, threshold,
		s.hybrid.RRFK, s.hybrid.BM25Weight, s.hybrid.VectorWeight,
	)
	if err != nil {
		slog.Error("storage.hybrid_search.failed", "table", table, "error", err)
		return []models.MemoryMatch{}, nil
	}
	defer rows.Close()

	var matches []models.MemoryMatch
	for rows.Next() {
		var (
			id       string
			content  string
			metadata map[string]any
			score    float64
		)
		if err := rows.Scan(&id, &content, &metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan hybrid result: %w", err)
		}
		matches = append(matches, models.MemoryMatch{
			ID:       id,
			Source:   models.SourceVector,
			Content:  content,
			Metadata: metadata,
			Score:    score,
		})
	}
	return matches, rows.Err()
}

// VectorSearch is pure pgvector cosine similarity over one table.
func (s *Service) VectorSearch(ctx context.Context, table string, embedding []float32, userID string, limit int, threshold float64) ([]models.MemoryMatch, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, services.NewValidationError("user_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.client.pool.Query(ctx,
		`SELECT id, content, similarity FROM vector_search($1, $2, $3, $4, $5)`,
		table, pgvector.NewVector(embedding), userID, limit, threshold,
	)
	if err != nil {
		slog.Error("storage.vector_search.failed", "table", table, "error", err)
		return []models.MemoryMatch{}, nil
	}
	defer rows.Close()

	var matches []models.MemoryMatch
	for rows.Next() {
		var (
			id      string
			content string
			score   float64
		)
		if err := rows.Scan(&id, &content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan vector result: %w", err)
		}
		matches = append(matches, models.MemoryMatch{
			ID:       id,
			Source:   models.SourceVector,
			Content:  content,
			Metadata: map[string]any{"table": table},
			Score:    score,
		})
	}
	return matches, rows.Err()
}

// Per-table convenience wrappers composing embedding + hybrid search.

func (s *Service) SearchPatternsSemantic(ctx context.Context, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error) {
	return s.HybridSearch(ctx, "patterns", query, userID, embedding, limit, threshold)
}

func (s *Service) SearchExamplesSemantic(ctx context.Context, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error) {
	return s.HybridSearch(ctx, "examples", query, userID, embedding, limit, threshold)
}

func (s *Service) SearchKnowledgeSemantic(ctx context.Context, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error) {
	return s.HybridSearch(ctx, "knowledge", query, userID, embedding, limit, threshold)
}

func (s *Service) SearchExperiencesSemantic(ctx context.Context, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error) {
	return s.HybridSearch(ctx, "experiences", query, userID, embedding, limit, threshold)
}

// UpsertPatterns stores patterns idempotently by (owner, topic,
// content-hash). Duplicates reinforce confidence through the
// reinforce_pattern RPC instead of inserting a second row.
func (s *Service) UpsertPatterns(ctx context.Context, userID string, patterns []models.Pattern, embeddings [][]float32, reinforceDelta float64) error {
	if userID == "" {
		return services.NewValidationError("user_id", "required")
	}
	for i, p := range patterns {
		if p.Topic == "" {
			return services.NewValidationError("topic", "required")
		}
		if p.Content == "" {
			return services.NewValidationError("content", "required")
		}

		var embedding *pgvector.Vector
		if i < len(embeddings) && embeddings[i] != nil {
			v := pgvector.NewVector(embeddings[i])
			embedding = &v
		}
		hash := models.ContentHash(p.Content)

		if err := s.upsertPattern(ctx, userID, p, hash, embedding, reinforceDelta); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) upsertPattern(ctx context.Context, userID string, p models.Pattern, hash string, embedding *pgvector.Vector, reinforceDelta float64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.client.pool.Exec(ctx,
		`INSERT INTO patterns (user_id, topic, content, content_hash, confidence, keywords, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, topic, content_hash) DO NOTHING`,
		userID, p.Topic, p.Content, hash, p.Confidence, p.Keywords, embedding,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Duplicate: reinforce instead.
	var confidence *float64
	err = s.client.pool.QueryRow(ctx,
		`SELECT reinforce_pattern($1, $2, $3, $4)`,
		userID, p.Topic, hash, reinforceDelta,
	).Scan(&confidence)
	if err != nil {
		return fmt.Errorf("failed to reinforce pattern: %w", err)
	}
	slog.Debug("storage.pattern.reinforced", "topic", p.Topic)
	return nil
}

// AddRecord ingests one row into a searchable content table.
func (s *Service) AddRecord(ctx context.Context, table string, record models.Record, embedding []float32) (string, error) {
	if err := validateTable(table); err != nil {
		return "", err
	}
	if table == "patterns" {
		return "", fmt.Errorf("%w: patterns are ingested via UpsertPatterns", services.ErrInvalidInput)
	}
	if record.UserID == "" {
		return "", services.NewValidationError("user_id", "required")
	}
	if record.Content == "" {
		return "", services.NewValidationError("content", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var vec *pgvector.Vector
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	var id string
	err := s.client.pool.QueryRow(ctx,
		// Table name comes from the whitelist above, never from input.
		fmt.Sprintf(`INSERT INTO %s (user_id, content, category, tags, embedding)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`, table),
		record.UserID, record.Content, nullable(record.Category), record.Tags, vec,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

// DeleteRecord removes one row from a searchable content table.
func (s *Service) DeleteRecord(ctx context.Context, table, id, userID string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.client.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table),
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", services.ErrNotFound, table, id)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// errNoRows normalizes pgx.ErrNoRows into the service taxonomy.
func errNoRows(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", services.ErrNotFound, what)
	}
	return err
}
