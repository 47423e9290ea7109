package paths

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// VisiblePath is one catalog entry as a given user sees it.
type VisiblePath struct {
	ID             uuid.UUID       `json:"id"`
	Key            string          `json:"key"`
	DisplayName    string          `json:"display_name"`
	Subtitle       string          `json:"subtitle"`
	Description    string          `json:"description"`
	Level          enums.PathLevel `json:"level"`
	Duration       string          `json:"duration"`
	TimeCommitment string          `json:"time_commitment"`
	Sequential     bool            `json:"sequential"`
	InviteOnly     bool            `json:"invite_only"`
	IsEnrolled     bool            `json:"is_enrolled"`
	EnrolledAt     *time.Time      `json:"enrolled_at,omitempty"`
}

// StepDetail is one course step of a path.
type StepDetail struct {
	ID        uuid.UUID `json:"id"`
	CourseKey string    `json:"course_key"`
	Position  *int      `json:"position,omitempty"`
	Weight    float64   `json:"weight"`
}

// Criteria are the pass thresholds of a path. Paths without stored criteria
// fall back to the defaults.
type Criteria struct {
	RequiredCompletion float64 `json:"required_completion"`
	RequiredGrade      float64 `json:"required_grade"`
}

// DefaultCriteria are applied when a path has no grading criteria row.
var DefaultCriteria = Criteria{
	RequiredCompletion: 0.80,
	RequiredGrade:      0.75,
}

// PathGrade is the aggregate standing of one user across a path.
type PathGrade struct {
	// Grade is the weighted mean of per-course grades in [0, 1].
	Grade         float64 `json:"grade"`
	RequiredGrade float64 `json:"required_grade"`
	Passed        bool    `json:"passed"`
}

// CreatePathInput describes a new catalog entry.
type CreatePathInput struct {
	Key            string          `json:"key"`
	DisplayName    string          `json:"display_name"`
	Subtitle       string          `json:"subtitle"`
	Description    string          `json:"description"`
	Level          enums.PathLevel `json:"level"`
	Duration       string          `json:"duration"`
	TimeCommitment string          `json:"time_commitment"`
	Sequential     bool            `json:"sequential"`
	InviteOnly     *bool           `json:"invite_only"`
}

// CreateStepInput describes a new course step for a path.
type CreateStepInput struct {
	CourseKey string  `json:"course_key"`
	Position  *int    `json:"position"`
	Weight    float64 `json:"weight"`
}
