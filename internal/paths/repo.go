package paths

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
)

// Repository exposes the learning path catalog reads and writes.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPathByID loads one learning path.
func (r *Repository) FindPathByID(ctx context.Context, id uuid.UUID) (*models.LearningPath, error) {
	var row models.LearningPath
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindPathByKey loads one learning path by its serialized key.
func (r *Repository) FindPathByKey(ctx context.Context, key string) (*models.LearningPath, error) {
	var row models.LearningPath
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CreatePath inserts a new learning path.
func (r *Repository) CreatePath(ctx context.Context, row *models.LearningPath) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// StepsForPath returns the steps of a path in display order. Steps without a
// position sort after the positioned ones.
func (r *Repository) StepsForPath(ctx context.Context, pathID uuid.UUID) ([]models.LearningPathStep, error) {
	var rows []models.LearningPathStep
	err := r.db.WithContext(ctx).
		Where("learning_path_id = ?", pathID).
		Order("position IS NULL").
		Order("position ASC").
		Order("course_key ASC").
		Find(&rows).Error
	return rows, err
}

// CreateStep inserts a new step.
func (r *Repository) CreateStep(ctx context.Context, row *models.LearningPathStep) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// CriteriaForPath returns the stored grading criteria of a path, or nil when
// none were configured.
func (r *Repository) CriteriaForPath(ctx context.Context, pathID uuid.UUID) (*models.GradingCriteria, error) {
	var row models.GradingCriteria
	err := r.db.WithContext(ctx).First(&row, "learning_path_id = ?", pathID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveCriteria upserts the grading criteria of a path.
func (r *Repository) SaveCriteria(ctx context.Context, row *models.GradingCriteria) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
		return r.db.WithContext(ctx).Create(row).Error
	}
	return r.db.WithContext(ctx).Save(row).Error
}

// FindUser loads one user.
func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// visibleRow is the scan target of the visibility query.
type visibleRow struct {
	models.LearningPath
	EnrolledAt *time.Time
}

// visiblePathsQuery returns paths with the user's active enrollment date
// attached. Staff see everything; other users see public paths and paths
// they hold an enrollment in.
func (r *Repository) visiblePaths(ctx context.Context, user *models.User) ([]visibleRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LearningPath{}).
		Select(
			"learning_paths.*",
			"enrollments.created_at AS enrolled_at",
		).
		Joins(
			"LEFT JOIN enrollments ON enrollments.learning_path_id = learning_paths.id"+
				" AND enrollments.user_id = ? AND enrollments.is_active = ?",
			user.ID, true,
		)
	if !user.IsStaff {
		query = query.Where("learning_paths.invite_only = ? OR enrollments.id IS NOT NULL", false)
	}

	var rows []visibleRow
	err := query.
		Order("enrollments.created_at IS NULL").
		Order("enrollments.created_at ASC").
		Order("learning_paths.display_name ASC").
		Scan(&rows).Error
	return rows, err
}
