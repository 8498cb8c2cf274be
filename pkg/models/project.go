package models

import "time"

// LifecycleStage is a project's position in the planning→complete flow.
type LifecycleStage string

const (
	StagePlanning  LifecycleStage = "planning"
	StageExecuting LifecycleStage = "executing"
	StageReviewing LifecycleStage = "reviewing"
	StageLearning  LifecycleStage = "learning"
	StageComplete  LifecycleStage = "complete"
	StageArchived  LifecycleStage = "archived"
)

// stageOrder defines the forward partial order of lifecycle stages.
// Archive is reachable from any stage and is handled separately.
var stageOrder = map[LifecycleStage]int{
	StagePlanning:  0,
	StageExecuting: 1,
	StageReviewing: 2,
	StageLearning:  3,
	StageComplete:  4,
}

// NextStage returns the stage following s, or "" when s has no successor.
func NextStage(s LifecycleStage) LifecycleStage {
	switch s {
	case StagePlanning:
		return StageExecuting
	case StageExecuting:
		return StageReviewing
	case StageReviewing:
		return StageLearning
	case StageLearning:
		return StageComplete
	default:
		return ""
	}
}

// ValidTransition reports whether a project may move from one stage to
// another. Forward moves along the partial order are allowed, as is
// archiving from any stage.
func ValidTransition(from, to LifecycleStage) bool {
	if to == StageArchived {
		return true
	}
	fi, ok1 := stageOrder[from]
	ti, ok2 := stageOrder[to]
	return ok1 && ok2 && ti > fi
}

// ValidStage reports whether s is a recognized lifecycle stage.
func ValidStage(s LifecycleStage) bool {
	if s == StageArchived {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// Project is a tracked unit of work advancing through lifecycle stages.
type Project struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Stage       LifecycleStage `json:"lifecycle_stage"`
	Category    string         `json:"category,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// ArtifactType identifies the kind of artifact attached to a project.
type ArtifactType string

const (
	ArtifactPlan      ArtifactType = "plan"
	ArtifactResearch  ArtifactType = "research"
	ArtifactOutput    ArtifactType = "output"
	ArtifactReview    ArtifactType = "review"
	ArtifactLearnings ArtifactType = "learnings"
)

// ValidArtifactType reports whether t is a recognized artifact type.
func ValidArtifactType(t ArtifactType) bool {
	switch t {
	case ArtifactPlan, ArtifactResearch, ArtifactOutput, ArtifactReview, ArtifactLearnings:
		return true
	}
	return false
}

// Artifact is a document attached to a project. At most one artifact of
// each type exists per project; artifacts cascade-delete with the project.
type Artifact struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	Type      ArtifactType `json:"artifact_type"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
	UpdatedAt time.Time    `json:"updated_at,omitempty"`
}
