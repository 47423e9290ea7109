package hostlms

import (
	"context"
	"fmt"
	"sync"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// Stub is an in-memory host used in dev mode and tests.
type Stub struct {
	mu          sync.Mutex
	enrolled    map[string]enums.EnrollmentMode
	grades      map[string]Grade
	completions map[string]float64
	milestones  map[string]int

	// EnrollErr, when set, is returned by EnrollUserInCourse for every call.
	EnrollErr error
	// UnenrollErr, when set, is returned by UnenrollUserFromCourse.
	UnenrollErr error
}

func NewStub() *Stub {
	return &Stub{
		enrolled:    make(map[string]enums.EnrollmentMode),
		grades:      make(map[string]Grade),
		completions: make(map[string]float64),
		milestones:  make(map[string]int),
	}
}

func stubKey(username, courseKey string) string {
	return fmt.Sprintf("%s|%s", username, courseKey)
}

func (s *Stub) EnrollUserInCourse(_ context.Context, username, courseKey string, mode enums.EnrollmentMode) (bool, error) {
	if s.EnrollErr != nil {
		return false, s.EnrollErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stubKey(username, courseKey)
	if _, ok := s.enrolled[key]; ok {
		return false, nil
	}
	s.enrolled[key] = mode
	return true, nil
}

func (s *Stub) UnenrollUserFromCourse(_ context.Context, username, courseKey string) error {
	if s.UnenrollErr != nil {
		return s.UnenrollErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enrolled, stubKey(username, courseKey))
	return nil
}

func (s *Stub) CourseGrade(_ context.Context, username, courseKey string) (Grade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grades[stubKey(username, courseKey)], nil
}

func (s *Stub) CourseCompletionPercent(_ context.Context, username, courseKey string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions[stubKey(username, courseKey)], nil
}

func (s *Stub) FulfillMilestone(_ context.Context, username, courseKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milestones[stubKey(username, courseKey)]++
	return nil
}

// IsEnrolled reports whether the stub recorded a course enrollment.
func (s *Stub) IsEnrolled(username, courseKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrolled[stubKey(username, courseKey)]
	return ok
}

// SetGrade seeds a grade for the user/course pair.
func (s *Stub) SetGrade(username, courseKey string, grade Grade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grades[stubKey(username, courseKey)] = grade
}

// SetCompletion seeds a completion percentage for the user/course pair.
func (s *Stub) SetCompletion(username, courseKey string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[stubKey(username, courseKey)] = percent
}

// MilestoneCount reports how many times a milestone was fulfilled.
func (s *Stub) MilestoneCount(username, courseKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.milestones[stubKey(username, courseKey)]
}
