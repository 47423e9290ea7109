package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// LearningPath is an ordered bundle of courses with shared grading and
// completion requirements. Paths are invite-only by default so making one
// public is an explicit action.
type LearningPath struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key            string          `gorm:"column:key;type:text;not null;uniqueIndex"`
	DisplayName    string          `gorm:"column:display_name;type:text;not null"`
	Subtitle       string          `gorm:"column:subtitle;type:text;not null;default:''"`
	Description    string          `gorm:"column:description;type:text;not null;default:''"`
	Level          enums.PathLevel `gorm:"column:level;type:text"`
	Duration       string          `gorm:"column:duration;type:text;not null;default:''"`
	TimeCommitment string          `gorm:"column:time_commitment;type:text;not null;default:''"`
	Sequential     bool            `gorm:"column:sequential;not null;default:false"`
	InviteOnly     bool            `gorm:"column:invite_only;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LearningPathStep binds a course to a path with an ordinal position and a
// weight used by the aggregate grade.
type LearningPathStep struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LearningPathID uuid.UUID `gorm:"column:learning_path_id;type:uuid;not null;uniqueIndex:idx_steps_path_course"`
	CourseKey      string    `gorm:"column:course_key;type:text;not null;uniqueIndex:idx_steps_path_course"`
	Position       *int      `gorm:"column:position"`
	Weight         float64   `gorm:"column:weight;not null;default:1"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GradingCriteria holds the pass thresholds for one learning path.
type GradingCriteria struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LearningPathID     uuid.UUID `gorm:"column:learning_path_id;type:uuid;not null;uniqueIndex"`
	RequiredCompletion float64   `gorm:"column:required_completion;not null;default:0.8"`
	RequiredGrade      float64   `gorm:"column:required_grade;not null;default:0.75"`
}

func (GradingCriteria) TableName() string {
	return "grading_criteria"
}
