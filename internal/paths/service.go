package paths

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	dbpkg "github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/keys"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

// dbConn is the database surface the service needs.
type dbConn interface {
	DB() *gorm.DB
}

// Service is the learning path catalog: what exists, who can see it, and how
// a user is doing across a path's courses.
type Service interface {
	CreatePath(ctx context.Context, in CreatePathInput) (*models.LearningPath, error)
	GetPath(ctx context.Context, key string) (*models.LearningPath, error)
	AddStep(ctx context.Context, pathID uuid.UUID, in CreateStepInput) (*models.LearningPathStep, error)
	Steps(ctx context.Context, pathID uuid.UUID) ([]StepDetail, error)

	VisiblePaths(ctx context.Context, userID uuid.UUID) ([]VisiblePath, error)
	CriteriaForPath(ctx context.Context, pathID uuid.UUID) (Criteria, error)
	AggregateGrade(ctx context.Context, userID, pathID uuid.UUID) (PathGrade, error)
}

// Deps wires the service collaborators.
type Deps struct {
	DB     dbConn
	Host   hostlms.Client
	Logger *logger.Logger
}

type service struct {
	db   dbConn
	host hostlms.Client
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(d Deps) (Service, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{db: d.DB, host: d.Host, logg: d.Logger}, nil
}

func (s *service) repo() *Repository {
	return NewRepository(s.db.DB())
}

// CreatePath inserts a catalog entry. Paths stay invite-only unless the
// request opts out explicitly.
func (s *service) CreatePath(ctx context.Context, in CreatePathInput) (*models.LearningPath, error) {
	if _, err := keys.ParsePathKey(in.Key); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if in.DisplayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_name is required")
	}

	inviteOnly := true
	if in.InviteOnly != nil {
		inviteOnly = *in.InviteOnly
	}
	row := &models.LearningPath{
		Key:            in.Key,
		DisplayName:    in.DisplayName,
		Subtitle:       in.Subtitle,
		Description:    in.Description,
		Level:          in.Level,
		Duration:       in.Duration,
		TimeCommitment: in.TimeCommitment,
		Sequential:     in.Sequential,
		InviteOnly:     inviteOnly,
	}
	if err := s.repo().CreatePath(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_learning_paths_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "learning path key exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create learning path")
	}
	return row, nil
}

// GetPath loads one catalog entry by key.
func (s *service) GetPath(ctx context.Context, key string) (*models.LearningPath, error) {
	row, err := s.repo().FindPathByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "learning path not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup learning path")
	}
	return row, nil
}

// AddStep appends a course step to a path.
func (s *service) AddStep(ctx context.Context, pathID uuid.UUID, in CreateStepInput) (*models.LearningPathStep, error) {
	if _, err := keys.ParseCourseKey(in.CourseKey); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if in.Weight < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}
	if _, err := s.repo().FindPathByID(ctx, pathID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "learning path not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup learning path")
	}

	weight := in.Weight
	if weight == 0 {
		weight = 1
	}
	row := &models.LearningPathStep{
		LearningPathID: pathID,
		CourseKey:      in.CourseKey,
		Position:       in.Position,
		Weight:         weight,
	}
	if err := s.repo().CreateStep(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_steps_path_course") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "course already part of this learning path")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create path step")
	}
	return row, nil
}

// Steps returns the course steps of a path in display order.
func (s *service) Steps(ctx context.Context, pathID uuid.UUID) ([]StepDetail, error) {
	rows, err := s.repo().StepsForPath(ctx, pathID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list path steps")
	}
	details := make([]StepDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, StepDetail{
			ID:        row.ID,
			CourseKey: row.CourseKey,
			Position:  row.Position,
			Weight:    row.Weight,
		})
	}
	return details, nil
}

// VisiblePaths returns the catalog as the user sees it: staff get everything,
// other users get public paths plus the ones they are enrolled in. Enrolled
// paths sort first, oldest enrollment leading.
func (s *service) VisiblePaths(ctx context.Context, userID uuid.UUID) ([]VisiblePath, error) {
	user, err := s.repo().FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	rows, err := s.repo().visiblePaths(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query visible paths")
	}

	visible := make([]VisiblePath, 0, len(rows))
	for _, row := range rows {
		visible = append(visible, VisiblePath{
			ID:             row.ID,
			Key:            row.Key,
			DisplayName:    row.DisplayName,
			Subtitle:       row.Subtitle,
			Description:    row.Description,
			Level:          row.Level,
			Duration:       row.Duration,
			TimeCommitment: row.TimeCommitment,
			Sequential:     row.Sequential,
			InviteOnly:     row.InviteOnly,
			IsEnrolled:     row.EnrolledAt != nil,
			EnrolledAt:     row.EnrolledAt,
		})
	}
	return visible, nil
}

// CriteriaForPath returns the pass thresholds of a path, falling back to the
// defaults when none were configured.
func (s *service) CriteriaForPath(ctx context.Context, pathID uuid.UUID) (Criteria, error) {
	row, err := s.repo().CriteriaForPath(ctx, pathID)
	if err != nil {
		return Criteria{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup grading criteria")
	}
	if row == nil {
		return DefaultCriteria, nil
	}
	return Criteria{
		RequiredCompletion: row.RequiredCompletion,
		RequiredGrade:      row.RequiredGrade,
	}, nil
}

// AggregateGrade computes the weighted mean of the user's per-course grades
// across the path's steps and compares it against the path's required grade.
// A path without steps grades to zero.
func (s *service) AggregateGrade(ctx context.Context, userID, pathID uuid.UUID) (PathGrade, error) {
	if s.host == nil {
		return PathGrade{}, pkgerrors.New(pkgerrors.CodeDependency, "host lms not configured")
	}
	user, err := s.repo().FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PathGrade{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return PathGrade{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	steps, err := s.repo().StepsForPath(ctx, pathID)
	if err != nil {
		return PathGrade{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list path steps")
	}
	criteria, err := s.CriteriaForPath(ctx, pathID)
	if err != nil {
		return PathGrade{}, err
	}

	var weighted, totalWeight float64
	for _, step := range steps {
		grade, err := s.host.CourseGrade(ctx, user.Username, step.CourseKey)
		if err != nil {
			return PathGrade{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch course grade")
		}
		weighted += grade.Percent * step.Weight
		totalWeight += step.Weight
	}

	result := PathGrade{RequiredGrade: criteria.RequiredGrade}
	if totalWeight > 0 {
		result.Grade = weighted / totalWeight
	}
	result.Passed = result.Grade >= criteria.RequiredGrade
	return result, nil
}
