// Package hostlms defines the surface of the host learning platform that the
// enrollment subsystem depends on. The plugin never owns course state: course
// enrollment, grades and completion all live in the host, and everything here
// is a view onto it.
package hostlms

import (
	"context"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// Grade is a user's current standing in one course run.
type Grade struct {
	// Percent is the grade share in [0, 1].
	Percent float64
	// Passed reports whether the host considers the grade passing.
	Passed bool
}

// Client is the host LMS integration surface.
//
// EnrollUserInCourse reports false when the user was already enrolled; an
// existing enrollment is never an error.
type Client interface {
	EnrollUserInCourse(ctx context.Context, username, courseKey string, mode enums.EnrollmentMode) (bool, error)
	UnenrollUserFromCourse(ctx context.Context, username, courseKey string) error

	CourseGrade(ctx context.Context, username, courseKey string) (Grade, error)
	// CourseCompletionPercent returns the completion share in [0, 100].
	CourseCompletionPercent(ctx context.Context, username, courseKey string) (float64, error)

	FulfillMilestone(ctx context.Context, username, courseKey string) error
}
