package enrollments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
)

type enrollmentJoinRow struct {
	UserID      uuid.UUID
	Username    string
	Email       string
	PathID      uuid.UUID
	PathKey     string
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
}

// listJoined resolves enrollments with their user and path details in one
// query instead of N+1 lookups.
func (s *service) listJoined(ctx context.Context, filter ListFilter) ([]EnrollmentDetail, error) {
	query := s.db.DB().WithContext(ctx).
		Model(&models.Enrollment{}).
		Select(
			"enrollments.user_id AS user_id",
			"users.username AS username",
			"users.email AS email",
			"learning_paths.id AS path_id",
			"learning_paths.key AS path_key",
			"learning_paths.display_name AS display_name",
			"enrollments.is_active AS is_active",
			"enrollments.created_at AS created_at",
		).
		Joins("JOIN users ON users.id = enrollments.user_id").
		Joins("JOIN learning_paths ON learning_paths.id = enrollments.learning_path_id")

	if filter.UserID != nil {
		query = query.Where("enrollments.user_id = ?", *filter.UserID)
	}
	if filter.Username != "" {
		query = query.Where("users.username = ?", filter.Username)
	}
	if filter.PathID != nil {
		query = query.Where("enrollments.learning_path_id = ?", *filter.PathID)
	}
	if filter.ActiveOnly {
		query = query.Where("enrollments.is_active = ?", true)
	}

	var rows []enrollmentJoinRow
	if err := query.Order("enrollments.created_at ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	details := make([]EnrollmentDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, EnrollmentDetail{
			User: UserRef{
				ID:       row.UserID,
				Username: row.Username,
				Email:    row.Email,
			},
			LearningPath: LearningPathRef{
				ID:          row.PathID,
				Key:         row.PathKey,
				DisplayName: row.DisplayName,
			},
			IsActive: row.IsActive,
			Created:  row.CreatedAt,
		})
	}
	return details, nil
}
