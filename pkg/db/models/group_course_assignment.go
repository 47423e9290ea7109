package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// GroupCourseAssignment binds a user group to a course with an enrollment
// mode. When AutoEnroll is set, new group members are enrolled in the course
// as they join.
type GroupCourseAssignment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID        uuid.UUID            `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_course_assignments_group_course"`
	CourseID       string               `gorm:"column:course_id;type:text;not null;uniqueIndex:idx_group_course_assignments_group_course;index"`
	EnrollmentMode enums.EnrollmentMode `gorm:"column:enrollment_mode;type:text;not null;default:'audit'"`
	AutoEnroll     bool                 `gorm:"column:auto_enroll;not null;default:true"`
	AssignedByID   *uuid.UUID           `gorm:"column:assigned_by_id;type:uuid"`
	Reason         string               `gorm:"column:reason;type:text;not null;default:''"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true;index"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// GroupCourseEnrollmentAudit records the per-user outcome of one group-driven
// course enrollment or unenrollment. AssignmentID goes null when the
// assignment is deleted; the Reason text keeps a human-readable trace of the
// group and course in that case.
type GroupCourseEnrollmentAudit struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssignmentID *uuid.UUID             `gorm:"column:assignment_id;type:uuid;index"`
	UserID       *uuid.UUID             `gorm:"column:user_id;type:uuid"`
	Email        string                 `gorm:"column:email;type:text;not null;default:''"`
	EnrolledByID *uuid.UUID             `gorm:"column:enrolled_by_id;type:uuid"`
	Status       enums.GroupAuditStatus `gorm:"column:status;type:text;not null;default:'success';index"`
	ErrorMessage string                 `gorm:"column:error_message;type:text;not null;default:''"`
	Reason       string                 `gorm:"column:reason;type:text;not null;default:''"`
	Org          string                 `gorm:"column:org;type:text;not null;default:''"`
	Role         string                 `gorm:"column:role;type:text;not null;default:''"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}
