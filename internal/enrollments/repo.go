package enrollments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
)

// Repository exposes enrollment persistence operations. It is constructed
// over either the shared connection or an open transaction, so every write
// path can run under the caller's transactional scope.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an enrollment repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindEnrollment returns the enrollment row for the (user, path) pair, or
// nil when none exists.
func (r *Repository) FindEnrollment(ctx context.Context, userID, pathID uuid.UUID) (*models.Enrollment, error) {
	var row models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND learning_path_id = ?", userID, pathID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveEnrollment returns the active enrollment for the pair, or nil.
func (r *Repository) ActiveEnrollment(ctx context.Context, userID, pathID uuid.UUID) (*models.Enrollment, error) {
	row, err := r.FindEnrollment(ctx, userID, pathID)
	if err != nil || row == nil {
		return row, err
	}
	if !row.IsActive {
		return nil, nil
	}
	return row, nil
}

// CreateEnrollment inserts a new enrollment row.
func (r *Repository) CreateEnrollment(ctx context.Context, row *models.Enrollment) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SaveEnrollment persists changes to an existing enrollment row.
func (r *Repository) SaveEnrollment(ctx context.Context, row *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// FindAllowed returns the pre-registration record for the (email, path)
// pair, or nil when none exists.
func (r *Repository) FindAllowed(ctx context.Context, email string, pathID uuid.UUID) (*models.EnrollmentAllowed, error) {
	var row models.EnrollmentAllowed
	err := r.db.WithContext(ctx).
		Where("email = ? AND learning_path_id = ?", email, pathID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveAllowedByEmail returns every active pre-registration for an email.
func (r *Repository) ActiveAllowedByEmail(ctx context.Context, email string) ([]models.EnrollmentAllowed, error) {
	var rows []models.EnrollmentAllowed
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// CreateAllowed inserts a new pre-registration row.
func (r *Repository) CreateAllowed(ctx context.Context, row *models.EnrollmentAllowed) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SaveAllowed persists changes to an existing pre-registration row.
func (r *Repository) SaveAllowed(ctx context.Context, row *models.EnrollmentAllowed) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// LatestAuditForEnrollment returns the most recent audit entry of an
// enrollment, or nil when the ledger is empty.
func (r *Repository) LatestAuditForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.EnrollmentAudit, error) {
	var row models.EnrollmentAudit
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LatestAuditForAllowed returns the most recent audit entry of a
// pre-registration, or nil when the ledger is empty.
func (r *Repository) LatestAuditForAllowed(ctx context.Context, allowedID uuid.UUID) (*models.EnrollmentAudit, error) {
	var row models.EnrollmentAudit
	err := r.db.WithContext(ctx).
		Where("enrollment_allowed_id = ?", allowedID).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AppendAudit inserts one audit entry. The ledger is append-only; there is
// deliberately no update or delete counterpart.
func (r *Repository) AppendAudit(ctx context.Context, row *models.EnrollmentAudit) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// AuditsForEnrollment returns the full history of an enrollment, oldest first.
func (r *Repository) AuditsForEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.EnrollmentAudit, error) {
	var rows []models.EnrollmentAudit
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// AuditsForAllowed returns the full history of a pre-registration, oldest first.
func (r *Repository) AuditsForAllowed(ctx context.Context, allowedID uuid.UUID) ([]models.EnrollmentAudit, error) {
	var rows []models.EnrollmentAudit
	err := r.db.WithContext(ctx).
		Where("enrollment_allowed_id = ?", allowedID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ReparentAllowedAudits attaches every audit entry of a pre-registration to
// the enrollment it was promoted into, keeping the history in one ledger.
func (r *Repository) ReparentAllowedAudits(ctx context.Context, allowedID, enrollmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.EnrollmentAudit{}).
		Where("enrollment_allowed_id = ?", allowedID).
		Update("enrollment_id", enrollmentID).Error
}

// CountAudits reports the total number of ledger entries.
func (r *Repository) CountAudits(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EnrollmentAudit{}).Count(&count).Error
	return count, err
}

// FindUserByID loads a user row.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UsersByEmails returns the user rows matching any of the given emails.
func (r *Repository) UsersByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("email IN ?", emails).
		Find(&rows).Error
	return rows, err
}

// FindPathByID loads a learning path row.
func (r *Repository) FindPathByID(ctx context.Context, id uuid.UUID) (*models.LearningPath, error) {
	var row models.LearningPath
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// PathsByKeys returns the learning paths matching any of the given keys.
// Unknown keys are silently absent from the result.
func (r *Repository) PathsByKeys(ctx context.Context, pathKeys []string) ([]models.LearningPath, error) {
	if len(pathKeys) == 0 {
		return nil, nil
	}
	var rows []models.LearningPath
	err := r.db.WithContext(ctx).
		Where("key IN ?", pathKeys).
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

// PathStepExists reports whether a course is a step of the learning path.
func (r *Repository) PathStepExists(ctx context.Context, pathID uuid.UUID, courseKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LearningPathStep{}).
		Where("learning_path_id = ? AND course_key = ?", pathID, courseKey).
		Count(&count).Error
	return count > 0, err
}

// MemberEmailsForGroups returns the distinct emails of every member of the
// given groups.
func (r *Repository) MemberEmailsForGroups(ctx context.Context, groupIDs []uuid.UUID) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Distinct("users.email").
		Joins("JOIN users ON users.id = group_memberships.user_id").
		Where("group_memberships.group_id IN ?", groupIDs).
		Pluck("users.email", &emails).Error
	return emails, err
}
