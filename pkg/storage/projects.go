package storage

import (
	"context"
	"fmt"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// CreateProjectRequest carries the fields for a new project.
type CreateProjectRequest struct {
	UserID      string
	Title       string
	Description string
	Category    string
}

// CreateProject inserts a project in the planning stage.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*models.Project, error) {
	if req.UserID == "" {
		return nil, services.NewValidationError("user_id", "required")
	}
	if req.Title == "" {
		return nil, services.NewValidationError("title", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	p := &models.Project{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Stage:       models.StagePlanning,
		Category:    req.Category,
	}
	err := s.client.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, title, description, category)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		req.UserID, req.Title, req.Description, nullable(req.Category),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// GetProject returns one project scoped to its owner.
func (s *Service) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p models.Project
	var category *string
	err := s.client.pool.QueryRow(ctx,
		`SELECT id, user_id, title, description, lifecycle_stage, category, created_at, updated_at
		 FROM projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Stage, &category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, errNoRows(err, "project "+id)
	}
	if category != nil {
		p.Category = *category
	}
	return &p, nil
}

// ListProjects returns the owner's projects, most recently updated first.
// Archived projects are excluded unless includeArchived is set.
func (s *Service) ListProjects(ctx context.Context, userID string, includeArchived bool) ([]models.Project, error) {
	if userID == "" {
		return nil, services.NewValidationError("user_id", "required")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT id, user_id, title, description, lifecycle_stage, category, created_at, updated_at
	          FROM projects WHERE user_id = $1`
	if !includeArchived {
		query += ` AND lifecycle_stage <> 'archived'`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.client.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var category *string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Stage, &category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if category != nil {
			p.Category = *category
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject changes title/description/category. Stage changes go
// through AdvanceProject.
func (s *Service) UpdateProject(ctx context.Context, id, userID string, title, description, category *string) (*models.Project, error) {
	current, err := s.GetProject(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		if *title == "" {
			return nil, services.NewValidationError("title", "must not be empty")
		}
		current.Title = *title
	}
	if description != nil {
		current.Description = *description
	}
	if category != nil {
		current.Category = *category
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err = s.client.pool.QueryRow(ctx,
		`UPDATE projects SET title = $3, description = $4, category = $5, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		id, userID, current.Title, current.Description, nullable(current.Category),
	).Scan(&current.UpdatedAt)
	if err != nil {
		return nil, errNoRows(err, "project "+id)
	}
	return current, nil
}

// AdvanceProject transitions a project to the given stage, enforcing the
// lifecycle partial order. When target is empty, the next stage in the
// order is used. Archiving is allowed from any stage.
func (s *Service) AdvanceProject(ctx context.Context, id, userID string, target models.LifecycleStage) (*models.Project, error) {
	current, err := s.GetProject(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if target == "" {
		target = models.NextStage(current.Stage)
		if target == "" {
			return nil, fmt.Errorf("%w: project is already %s", services.ErrConflict, current.Stage)
		}
	}
	if !models.ValidStage(target) {
		return nil, services.NewValidationError("lifecycle_stage", fmt.Sprintf("unknown stage %q", target))
	}
	if !models.ValidTransition(current.Stage, target) {
		return nil, fmt.Errorf("%w: cannot move project from %s to %s", services.ErrConflict, current.Stage, target)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err = s.client.pool.QueryRow(ctx,
		`UPDATE projects SET lifecycle_stage = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		id, userID, string(target),
	).Scan(&current.UpdatedAt)
	if err != nil {
		return nil, errNoRows(err, "project "+id)
	}
	current.Stage = target
	return current, nil
}

// DeleteProject removes a project; artifacts cascade-delete with it.
func (s *Service) DeleteProject(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.client.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", services.ErrNotFound, id)
	}
	return nil
}

// AddArtifact creates or replaces the project's artifact of the given
// type. (project_id, artifact_type) is unique, so a second plan replaces
// the first.
func (s *Service) AddArtifact(ctx context.Context, projectID, userID string, artifactType models.ArtifactType, title, content string) (*models.Artifact, error) {
	if !models.ValidArtifactType(artifactType) {
		return nil, services.NewValidationError("artifact_type", fmt.Sprintf("unknown type %q", artifactType))
	}
	if title == "" {
		return nil, services.NewValidationError("title", "required")
	}
	// Ownership check before touching artifacts.
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	a := &models.Artifact{
		ProjectID: projectID,
		Type:      artifactType,
		Title:     title,
		Content:   content,
	}
	err := s.client.pool.QueryRow(ctx,
		`INSERT INTO project_artifacts (project_id, artifact_type, title, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (project_id, artifact_type)
		 DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content, updated_at = now()
		 RETURNING id, created_at, updated_at`,
		projectID, string(artifactType), title, content,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns a project's artifacts in artifact-type order.
func (s *Service) ListArtifacts(ctx context.Context, projectID, userID string) ([]models.Artifact, error) {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.client.pool.Query(ctx,
		`SELECT id, project_id, artifact_type, title, content, created_at, updated_at
		 FROM project_artifacts WHERE project_id = $1
		 ORDER BY artifact_type`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Type, &a.Title, &a.Content, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteArtifact removes one artifact from a project.
func (s *Service) DeleteArtifact(ctx context.Context, projectID, userID string, artifactType models.ArtifactType) error {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.client.pool.Exec(ctx,
		`DELETE FROM project_artifacts WHERE project_id = $1 AND artifact_type = $2`,
		projectID, string(artifactType),
	)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: artifact %s/%s", services.ErrNotFound, projectID, artifactType)
	}
	return nil
}
