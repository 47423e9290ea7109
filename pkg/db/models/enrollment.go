package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment ties a user to a learning path. At most one row ever exists per
// (user, learning path) pair; state changes flip IsActive, they never create
// duplicates, and rows are never deleted.
type Enrollment struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_path"`
	LearningPathID uuid.UUID `gorm:"column:learning_path_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_path"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EnrollmentAllowed is a pre-registration invitation tied to an email address.
// Staff create these before the learner has an account; once the email
// registers, the row is promoted into a real Enrollment and deactivated, with
// the new user attached for traceability.
type EnrollmentAllowed struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string     `gorm:"column:email;type:text;not null;uniqueIndex:idx_enrollment_allowed_email_path"`
	LearningPathID uuid.UUID  `gorm:"column:learning_path_id;type:uuid;not null;uniqueIndex:idx_enrollment_allowed_email_path"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (EnrollmentAllowed) TableName() string {
	return "enrollment_allowed"
}
