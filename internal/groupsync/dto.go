package groupsync

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// CreateAssignmentInput describes a new group-course assignment.
type CreateAssignmentInput struct {
	GroupID        uuid.UUID            `json:"group_id"`
	CourseKey      string               `json:"course_key"`
	EnrollmentMode enums.EnrollmentMode `json:"enrollment_mode"`
	AutoEnroll     *bool                `json:"auto_enroll"`
	Reason         string               `json:"reason"`
	ActorID        *uuid.UUID           `json:"-"`
}

// BulkGroupEnrollRequest enrolls the members of many groups into many courses
// in one call. With CreateAssignments set, missing group-course assignments
// are created along the way.
type BulkGroupEnrollRequest struct {
	GroupIDs          []uuid.UUID          `json:"group_ids"`
	CourseKeys        []string             `json:"course_keys"`
	EnrollmentMode    enums.EnrollmentMode `json:"enrollment_mode"`
	CreateAssignments bool                 `json:"create_assignments"`
	Reason            string               `json:"reason"`
	ActorID           *uuid.UUID           `json:"-"`
}

// BulkGroupEnrollResult reports the outcome of a bulk group enrollment.
type BulkGroupEnrollResult struct {
	EnrollmentsCreated int `json:"enrollments_created"`
	EnrollmentsFailed  int `json:"enrollments_failed"`
	AssignmentsCreated int `json:"assignments_created"`
}

// SyncRequest selects the assignments to reconcile. Empty AssignmentIDs means
// every active auto-enroll assignment.
type SyncRequest struct {
	AssignmentIDs []uuid.UUID `json:"assignment_ids"`
	ActorID       *uuid.UUID  `json:"-"`
}

// SyncResult reports how many member-course pairs each outcome bucket got.
type SyncResult struct {
	Enrolled int `json:"enrolled"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// AssignmentDetail is the read model of one assignment with its group name
// resolved.
type AssignmentDetail struct {
	ID             uuid.UUID            `json:"id"`
	GroupID        uuid.UUID            `json:"group_id"`
	GroupName      string               `json:"group_name"`
	CourseKey      string               `json:"course_key"`
	EnrollmentMode enums.EnrollmentMode `json:"enrollment_mode"`
	AutoEnroll     bool                 `json:"auto_enroll"`
	Reason         string               `json:"reason"`
	IsActive       bool                 `json:"is_active"`
	CreatedAt      time.Time            `json:"created_at"`
}

func assignmentDetail(row models.GroupCourseAssignment, groupName string) AssignmentDetail {
	return AssignmentDetail{
		ID:             row.ID,
		GroupID:        row.GroupID,
		GroupName:      groupName,
		CourseKey:      row.CourseID,
		EnrollmentMode: row.EnrollmentMode,
		AutoEnroll:     row.AutoEnroll,
		Reason:         row.Reason,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
	}
}
