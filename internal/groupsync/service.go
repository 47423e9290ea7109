package groupsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/keys"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
)

// dbConn is the database surface the service needs.
type dbConn interface {
	DB() *gorm.DB
}

// Service keeps group membership and host course enrollment in step: members
// joining or leaving a group, assignments being created or deleted, and
// on-demand reconciliation all flow through here. Every member-course outcome
// lands in the group audit trail.
type Service interface {
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error

	CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*models.GroupCourseAssignment, error)
	DeleteAssignment(ctx context.Context, assignmentID uuid.UUID, actorID *uuid.UUID) error

	BulkEnrollGroups(ctx context.Context, req BulkGroupEnrollRequest) (BulkGroupEnrollResult, error)
	SyncAssignments(ctx context.Context, req SyncRequest) (SyncResult, error)

	ListGroups(ctx context.Context) ([]GroupSummary, error)
	ListAssignments(ctx context.Context) ([]AssignmentDetail, error)
	AssignmentHistory(ctx context.Context, assignmentID uuid.UUID) ([]models.GroupCourseEnrollmentAudit, error)
}

// Deps wires the service collaborators.
type Deps struct {
	DB      dbConn
	Host    hostlms.Client
	Logger  *logger.Logger
	Metrics *metrics.EnrollmentMetrics
}

type service struct {
	db      dbConn
	host    hostlms.Client
	logg    *logger.Logger
	metrics *metrics.EnrollmentMetrics
}

// NewService builds the group sync service.
func NewService(d Deps) (Service, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if d.Host == nil {
		return nil, fmt.Errorf("host lms client required")
	}
	return &service{
		db:      d.DB,
		host:    d.Host,
		logg:    d.Logger,
		metrics: d.Metrics,
	}, nil
}

func (s *service) repo() *Repository {
	return NewRepository(s.db.DB())
}

// AddMember adds the user to the group and enrolls them in every active
// assignment of the group that has automatic enrollment enabled. A host
// refusal marks the pair skipped; a host error marks it failed. Neither stops
// the remaining assignments.
func (s *service) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	group, user, err := s.lookupGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return err
	}

	if err := s.repo().AddMembership(ctx, groupID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add group membership")
	}

	assignments, err := s.repo().ActiveAssignmentsForGroups(ctx, []uuid.UUID{groupID}, true)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group assignments")
	}

	reason := fmt.Sprintf("Auto-enrollment via group membership in %s", group.Name)
	for i := range assignments {
		assignment := &assignments[i]
		s.enrollMember(ctx, assignment, user, &user.ID, reason)
	}
	return nil
}

// RemoveMember removes the user from the group and unenrolls them from every
// active assignment of the group, auto-enroll or not.
func (s *service) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	group, user, err := s.lookupGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return err
	}

	if err := s.repo().RemoveMembership(ctx, groupID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove group membership")
	}

	assignments, err := s.repo().ActiveAssignmentsForGroups(ctx, []uuid.UUID{groupID}, false)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group assignments")
	}

	reason := fmt.Sprintf("Auto-unenrollment via group removal from %s", group.Name)
	for i := range assignments {
		assignment := &assignments[i]
		s.unenrollMember(ctx, &assignment.ID, assignment.CourseID, user, &user.ID, reason)
	}
	return nil
}

// CreateAssignment binds a group to a course. An active assignment for the
// same pair is a conflict; an inactive one is reactivated.
func (s *service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*models.GroupCourseAssignment, error) {
	if _, err := keys.ParseCourseKey(in.CourseKey); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if _, err := s.repo().FindGroup(ctx, in.GroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group")
	}

	mode := in.EnrollmentMode
	if mode == "" {
		mode = enums.ModeAudit
	}
	autoEnroll := true
	if in.AutoEnroll != nil {
		autoEnroll = *in.AutoEnroll
	}

	existing, err := s.repo().FindAssignmentForGroupCourse(ctx, in.GroupID, in.CourseKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup assignment")
	}
	if existing != nil {
		if existing.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "assignment exists")
		}
		existing.IsActive = true
		existing.EnrollmentMode = mode
		existing.AutoEnroll = autoEnroll
		existing.Reason = in.Reason
		existing.AssignedByID = in.ActorID
		if err := s.repo().SaveAssignment(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate assignment")
		}
		return existing, nil
	}

	row := &models.GroupCourseAssignment{
		GroupID:        in.GroupID,
		CourseID:       in.CourseKey,
		EnrollmentMode: mode,
		AutoEnroll:     autoEnroll,
		AssignedByID:   in.ActorID,
		Reason:         in.Reason,
		IsActive:       true,
	}
	if err := s.repo().CreateAssignment(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assignment")
	}
	return row, nil
}

// DeleteAssignment removes the assignment and unenrolls every current group
// member from its course. The audit entries survive the deleted row: their
// assignment reference goes null and the reason text names the group and
// course instead.
func (s *service) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID, actorID *uuid.UUID) error {
	assignment, err := s.repo().FindAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup assignment")
	}
	group, err := s.repo().FindGroup(ctx, assignment.GroupID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group")
	}
	members, err := s.repo().MembersOfGroup(ctx, assignment.GroupID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group members")
	}

	if err := s.repo().DeleteAssignment(ctx, assignmentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete assignment")
	}

	reason := fmt.Sprintf(
		"Auto-unenrollment due to deletion of group-course assignment: %s → %s",
		group.Name, assignment.CourseID,
	)
	for i := range members {
		member := &members[i]
		s.unenrollMember(ctx, nil, assignment.CourseID, member, actorID, reason)
	}
	return nil
}

// BulkEnrollGroups enrolls the members of the given groups into the given
// courses. A member the host refuses counts as failed; one group-course pair
// failing does not stop the rest.
func (s *service) BulkEnrollGroups(ctx context.Context, req BulkGroupEnrollRequest) (BulkGroupEnrollResult, error) {
	var result BulkGroupEnrollResult

	for _, courseKey := range req.CourseKeys {
		if _, err := keys.ParseCourseKey(courseKey); err != nil {
			return result, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}
	groups, err := s.repo().GroupsByIDs(ctx, req.GroupIDs)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup groups")
	}
	if len(groups) != len(req.GroupIDs) {
		return result, pkgerrors.New(pkgerrors.CodeNotFound, "one or more groups not found")
	}

	mode := req.EnrollmentMode
	if mode == "" {
		mode = enums.ModeAudit
	}

	var errs []error
	for i := range groups {
		group := &groups[i]

		members, err := s.repo().MembersOfGroup(ctx, group.ID)
		if err != nil {
			errs = append(errs, err)
			s.logError(ctx, "bulk group enroll: lookup members failed", err)
			continue
		}

		for _, courseKey := range req.CourseKeys {
			var assignmentID *uuid.UUID
			if req.CreateAssignments {
				assignment, created, err := s.getOrCreateAssignment(ctx, group.ID, courseKey, mode, req)
				if err != nil {
					errs = append(errs, err)
					s.logError(ctx, "bulk group enroll: assignment upsert failed", err)
					continue
				}
				assignmentID = &assignment.ID
				if created {
					result.AssignmentsCreated++
				}
			} else if existing, err := s.repo().FindAssignmentForGroupCourse(ctx, group.ID, courseKey); err == nil && existing != nil {
				assignmentID = &existing.ID
			}

			for j := range members {
				member := &members[j]
				audit := &models.GroupCourseEnrollmentAudit{
					AssignmentID: assignmentID,
					UserID:       &member.ID,
					Email:        member.Email,
					EnrolledByID: req.ActorID,
					Reason:       req.Reason,
				}

				ok, err := s.host.EnrollUserInCourse(ctx, member.Username, courseKey, mode)
				switch {
				case err != nil:
					audit.Status = enums.GroupAuditFailed
					audit.ErrorMessage = err.Error()
					result.EnrollmentsFailed++
				case !ok:
					audit.Status = enums.GroupAuditFailed
					audit.ErrorMessage = "Enrollment failed"
					result.EnrollmentsFailed++
				default:
					audit.Status = enums.GroupAuditSuccess
					result.EnrollmentsCreated++
				}
				s.appendAudit(ctx, audit)
			}
		}
	}

	return result, multierr.Combine(errs...)
}

// SyncAssignments re-runs enrollment for the selected assignments, or for
// every active auto-enroll assignment when none are named. Members the host
// already has enrolled are recorded as skipped.
func (s *service) SyncAssignments(ctx context.Context, req SyncRequest) (SyncResult, error) {
	var result SyncResult

	var assignments []models.GroupCourseAssignment
	var err error
	if len(req.AssignmentIDs) > 0 {
		assignments, err = s.repo().ActiveAssignmentsByIDs(ctx, req.AssignmentIDs)
	} else {
		assignments, err = s.repo().ActiveAutoEnrollAssignments(ctx)
	}
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup assignments")
	}

	var errs []error
	for i := range assignments {
		assignment := &assignments[i]

		members, err := s.repo().MembersOfGroup(ctx, assignment.GroupID)
		if err != nil {
			errs = append(errs, err)
			s.logError(ctx, "group sync: lookup members failed", err)
			continue
		}

		for j := range members {
			member := &members[j]
			outcome := s.enrollMember(ctx, assignment, member, req.ActorID, assignment.Reason)
			switch outcome {
			case enums.GroupAuditSuccess:
				result.Enrolled++
			case enums.GroupAuditSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
		}
	}

	return result, multierr.Combine(errs...)
}

// ListGroups returns every group with its member count.
func (s *service) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	rows, err := s.repo().ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list groups")
	}
	return rows, nil
}

// ListAssignments returns every assignment with its group name resolved.
func (s *service) ListAssignments(ctx context.Context) ([]AssignmentDetail, error) {
	assignments, err := s.repo().ListAssignments(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignments")
	}

	groupIDs := make([]uuid.UUID, 0, len(assignments))
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	for _, assignment := range assignments {
		if _, ok := seen[assignment.GroupID]; ok {
			continue
		}
		seen[assignment.GroupID] = struct{}{}
		groupIDs = append(groupIDs, assignment.GroupID)
	}
	groups, err := s.repo().GroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup groups")
	}
	names := make(map[uuid.UUID]string, len(groups))
	for _, group := range groups {
		names[group.ID] = group.Name
	}

	details := make([]AssignmentDetail, 0, len(assignments))
	for _, assignment := range assignments {
		details = append(details, assignmentDetail(assignment, names[assignment.GroupID]))
	}
	return details, nil
}

// AssignmentHistory returns the audit trail of one assignment, oldest first.
func (s *service) AssignmentHistory(ctx context.Context, assignmentID uuid.UUID) ([]models.GroupCourseEnrollmentAudit, error) {
	rows, err := s.repo().AuditsForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment history")
	}
	return rows, nil
}

// enrollMember enrolls one user in the assignment's course and records the
// outcome. A host refusal is a skip, a host error a failure; neither
// propagates.
func (s *service) enrollMember(
	ctx context.Context,
	assignment *models.GroupCourseAssignment,
	user *models.User,
	enrolledBy *uuid.UUID,
	reason string,
) enums.GroupAuditStatus {
	audit := &models.GroupCourseEnrollmentAudit{
		AssignmentID: &assignment.ID,
		UserID:       &user.ID,
		Email:        user.Email,
		EnrolledByID: enrolledBy,
		Reason:       reason,
	}

	ok, err := s.host.EnrollUserInCourse(ctx, user.Username, assignment.CourseID, assignment.EnrollmentMode)
	switch {
	case err != nil:
		audit.Status = enums.GroupAuditFailed
		audit.ErrorMessage = err.Error()
		s.logError(ctx, "group sync: course enrollment failed", err)
	case !ok:
		audit.Status = enums.GroupAuditSkipped
		audit.Reason = fmt.Sprintf("%s - already enrolled", reason)
	default:
		audit.Status = enums.GroupAuditSuccess
	}

	s.appendAudit(ctx, audit)
	return audit.Status
}

// unenrollMember removes one user from a course and records the outcome.
// assignmentID is nil when the assignment row is already gone.
func (s *service) unenrollMember(
	ctx context.Context,
	assignmentID *uuid.UUID,
	courseKey string,
	user *models.User,
	enrolledBy *uuid.UUID,
	reason string,
) {
	audit := &models.GroupCourseEnrollmentAudit{
		AssignmentID: assignmentID,
		UserID:       &user.ID,
		Email:        user.Email,
		EnrolledByID: enrolledBy,
		Reason:       reason,
		Status:       enums.GroupAuditSuccess,
	}

	if err := s.host.UnenrollUserFromCourse(ctx, user.Username, courseKey); err != nil {
		audit.Status = enums.GroupAuditFailed
		audit.ErrorMessage = err.Error()
		s.logError(ctx, "group sync: course unenrollment failed", err)
	}

	s.appendAudit(ctx, audit)
}

func (s *service) getOrCreateAssignment(
	ctx context.Context,
	groupID uuid.UUID,
	courseKey string,
	mode enums.EnrollmentMode,
	req BulkGroupEnrollRequest,
) (*models.GroupCourseAssignment, bool, error) {
	existing, err := s.repo().FindAssignmentForGroupCourse(ctx, groupID, courseKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	row := &models.GroupCourseAssignment{
		GroupID:        groupID,
		CourseID:       courseKey,
		EnrollmentMode: mode,
		AutoEnroll:     true,
		AssignedByID:   req.ActorID,
		Reason:         req.Reason,
		IsActive:       true,
	}
	if err := s.repo().CreateAssignment(ctx, row); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (s *service) lookupGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*models.Group, *models.User, error) {
	group, err := s.repo().FindGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group")
	}
	user, err := s.repo().FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return group, user, nil
}

func (s *service) appendAudit(ctx context.Context, audit *models.GroupCourseEnrollmentAudit) {
	if err := s.repo().AppendAudit(ctx, audit); err != nil {
		s.logError(ctx, "group sync: audit write failed", err)
		return
	}
	s.metrics.ObserveGroupSync(audit.Status)
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
