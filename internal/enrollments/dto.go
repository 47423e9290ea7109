package enrollments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BulkRequest is the staff-facing payload for bulk enrollment operations.
// LearningPaths and Emails are comma-separated; GroupIDs expands to the
// member emails of the named groups, deduplicated against Emails.
type BulkRequest struct {
	LearningPaths string
	Emails        string
	GroupIDs      string
	Reason        string
	Org           string
	Role          string
	ActorID       *uuid.UUID
}

// BulkEnrollResult counts what a bulk enroll actually changed. Re-affirming
// an already-active enrollment writes an audit entry but is not counted.
type BulkEnrollResult struct {
	EnrollmentsCreated       int `json:"enrollments_created"`
	EnrollmentAllowedCreated int `json:"enrollment_allowed_created"`
}

// BulkUnenrollResult counts what a bulk unenroll actually deactivated.
type BulkUnenrollResult struct {
	EnrollmentsUnenrolled        int `json:"enrollments_unenrolled"`
	EnrollmentAllowedDeactivated int `json:"enrollment_allowed_deactivated"`
}

// EnrollmentDetail is the read model returned by the listing operations.
type EnrollmentDetail struct {
	User         UserRef         `json:"user"`
	LearningPath LearningPathRef `json:"learning_path"`
	IsActive     bool            `json:"is_active"`
	Created      time.Time       `json:"created"`
}

type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type LearningPathRef struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	DisplayName string    `json:"display_name"`
}

// ListFilter narrows the enrollment listing operations.
type ListFilter struct {
	UserID     *uuid.UUID
	Username   string
	PathID     *uuid.UUID
	ActiveOnly bool
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
