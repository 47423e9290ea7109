package groupsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
)

// Repository exposes the persistence operations behind group-driven course
// enrollment.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a group sync repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindAssignment loads one group-course assignment.
func (r *Repository) FindAssignment(ctx context.Context, id uuid.UUID) (*models.GroupCourseAssignment, error) {
	var row models.GroupCourseAssignment
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindAssignmentForGroupCourse returns the assignment for the (group, course)
// pair, or nil when none exists.
func (r *Repository) FindAssignmentForGroupCourse(ctx context.Context, groupID uuid.UUID, courseID string) (*models.GroupCourseAssignment, error) {
	var row models.GroupCourseAssignment
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND course_id = ?", groupID, courseID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveAssignmentsForGroups returns the active assignments of the given
// groups. With autoEnrollOnly set, assignments that opted out of automatic
// enrollment are excluded.
func (r *Repository) ActiveAssignmentsForGroups(ctx context.Context, groupIDs []uuid.UUID, autoEnrollOnly bool) ([]models.GroupCourseAssignment, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("group_id IN ? AND is_active = ?", groupIDs, true)
	if autoEnrollOnly {
		query = query.Where("auto_enroll = ?", true)
	}
	var rows []models.GroupCourseAssignment
	err := query.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// ActiveAssignmentsByIDs returns the active assignments among the given IDs.
func (r *Repository) ActiveAssignmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.GroupCourseAssignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.GroupCourseAssignment
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ActiveAutoEnrollAssignments returns every active assignment with automatic
// enrollment enabled.
func (r *Repository) ActiveAutoEnrollAssignments(ctx context.Context) ([]models.GroupCourseAssignment, error) {
	var rows []models.GroupCourseAssignment
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_enroll = ?", true, true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListAssignments returns every assignment, newest first.
func (r *Repository) ListAssignments(ctx context.Context) ([]models.GroupCourseAssignment, error) {
	var rows []models.GroupCourseAssignment
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// CreateAssignment inserts a new assignment row.
func (r *Repository) CreateAssignment(ctx context.Context, row *models.GroupCourseAssignment) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SaveAssignment persists changes to an existing assignment row.
func (r *Repository) SaveAssignment(ctx context.Context, row *models.GroupCourseAssignment) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// DeleteAssignment removes the assignment row.
func (r *Repository) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.GroupCourseAssignment{}, "id = ?", id).Error
}

// FindGroup loads one group.
func (r *Repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var row models.Group
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// GroupsByIDs returns the groups matching any of the given IDs.
func (r *Repository) GroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Group
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// GroupSummary is a group with its member count, used by the listing API.
type GroupSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MemberCount int64     `json:"member_count"`
}

// ListGroups returns every group with its member count, ordered by name.
func (r *Repository) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	var rows []GroupSummary
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Select(
			"groups.id AS id",
			"groups.name AS name",
			"COUNT(group_memberships.id) AS member_count",
		).
		Joins("LEFT JOIN group_memberships ON group_memberships.group_id = groups.id").
		Group("groups.id, groups.name").
		Order("groups.name ASC").
		Scan(&rows).Error
	return rows, err
}

// MembersOfGroup returns the users belonging to a group.
func (r *Repository) MembersOfGroup(ctx context.Context, groupID uuid.UUID) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN group_memberships ON group_memberships.user_id = users.id").
		Where("group_memberships.group_id = ?", groupID).
		Order("users.username ASC").
		Find(&rows).Error
	return rows, err
}

// FindUser loads one user.
func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UsersByIDs returns the users matching any of the given IDs.
func (r *Repository) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("username ASC").
		Find(&rows).Error
	return rows, err
}

// AddMembership links a user to a group.
func (r *Repository) AddMembership(ctx context.Context, groupID, userID uuid.UUID) error {
	row := &models.GroupMembership{ID: uuid.New(), GroupID: groupID, UserID: userID}
	return r.db.WithContext(ctx).Create(row).Error
}

// RemoveMembership unlinks a user from a group.
func (r *Repository) RemoveMembership(ctx context.Context, groupID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.GroupMembership{}, "group_id = ? AND user_id = ?", groupID, userID).Error
}

// AppendAudit inserts one group course enrollment audit row.
func (r *Repository) AppendAudit(ctx context.Context, row *models.GroupCourseEnrollmentAudit) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// AuditsForAssignment returns the audit rows of one assignment, oldest first.
func (r *Repository) AuditsForAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.GroupCourseEnrollmentAudit, error) {
	var rows []models.GroupCourseEnrollmentAudit
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
