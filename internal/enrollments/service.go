package enrollments

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	dbpkg "github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/dispatch"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/keys"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
	"github.com/openlearnhq/learning-paths/pkg/outbox"
)

// txRunner is the transactional surface the service needs from the DB client.
type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CredentialRevoker revokes issued learning path credentials after an
// unenrollment commits.
type CredentialRevoker interface {
	RevokeForLearningPath(ctx context.Context, username, pathKey string) error
}

// Service exposes the enrollment lifecycle: single and bulk state changes,
// pending-enrollment resolution, course-step enrollment and history reads.
type Service interface {
	Enroll(ctx context.Context, pathID, userID uuid.UUID, in TransitionInput) (*models.Enrollment, bool, error)
	Unenroll(ctx context.Context, pathID, userID uuid.UUID, in TransitionInput) (*models.Enrollment, error)
	BulkEnroll(ctx context.Context, req BulkRequest) (BulkEnrollResult, error)
	BulkUnenroll(ctx context.Context, req BulkRequest) (BulkUnenrollResult, error)
	ResolvePending(ctx context.Context, userID uuid.UUID) (int, error)
	EnrollInPathCourse(ctx context.Context, pathID, userID uuid.UUID, courseKey string) error
	ListEnrollments(ctx context.Context, filter ListFilter) ([]EnrollmentDetail, error)
	History(ctx context.Context, enrollmentID uuid.UUID) ([]models.EnrollmentAudit, error)
	AllowedHistory(ctx context.Context, allowedID uuid.UUID) ([]models.EnrollmentAudit, error)
}

// Deps wires the service collaborators. Events and Revoker are optional;
// Mode decides which one carries the post-commit side effects.
type Deps struct {
	DB           txRunner
	StateMachine *StateMachine
	Host         hostlms.Client
	Events       *outbox.Service
	Revoker      CredentialRevoker
	Mode         dispatch.Mode
	Logger       *logger.Logger
	Metrics      *metrics.EnrollmentMetrics
}

type service struct {
	db      txRunner
	sm      *StateMachine
	host    hostlms.Client
	events  *outbox.Service
	revoker CredentialRevoker
	mode    dispatch.Mode
	logg    *logger.Logger
	metrics *metrics.EnrollmentMetrics

	validate *validator.Validate
}

// NewService builds the enrollment service.
func NewService(d Deps) (Service, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if d.StateMachine == nil {
		return nil, fmt.Errorf("state machine required")
	}
	if d.Mode == "" {
		d.Mode = dispatch.ModeInline
	}
	if d.Mode == dispatch.ModeOutbox && d.Events == nil {
		return nil, fmt.Errorf("outbox service required in outbox mode")
	}
	return &service{
		db:       d.DB,
		sm:       d.StateMachine,
		host:     d.Host,
		events:   d.Events,
		revoker:  d.Revoker,
		mode:     d.Mode,
		logg:     d.Logger,
		metrics:  d.Metrics,
		validate: validator.New(),
	}, nil
}

func (s *service) repo() *Repository {
	return NewRepository(s.db.DB())
}

// Enroll activates (or creates) the enrollment of a user in a learning path.
// The bool result reports whether the row was newly created. An already
// active enrollment is a conflict.
func (s *service) Enroll(ctx context.Context, pathID, userID uuid.UUID, in TransitionInput) (*models.Enrollment, bool, error) {
	path, err := s.repo().FindPathByID(ctx, pathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "learning path not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup learning path")
	}

	existing, err := s.repo().FindEnrollment(ctx, userID, pathID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup enrollment")
	}

	if existing == nil {
		row := &models.Enrollment{UserID: userID, LearningPathID: pathID, IsActive: true}
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.sm.SaveEnrollment(ctx, tx, row, PriorState{Created: true}, in); err != nil {
				return err
			}
			return s.emitEnrollmentChanged(ctx, tx, row, path.Key, enums.TransitionUnenrolledToEnrolled, in)
		})
		if err == nil {
			return row, true, nil
		}
		if !dbpkg.IsUniqueViolation(err, "idx_enrollments_user_path") {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create enrollment")
		}
		// Lost a creation race; fall through to the existing-row path.
		existing, err = s.repo().FindEnrollment(ctx, userID, pathID)
		if err != nil || existing == nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refetch enrollment after race")
		}
	}

	if existing.IsActive {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "enrollment exists")
	}

	existing.IsActive = true
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.sm.SaveEnrollment(ctx, tx, existing, PriorState{WasActive: false}, in); err != nil {
			return err
		}
		return s.emitEnrollmentChanged(ctx, tx, existing, path.Key, enums.TransitionUnenrolledToEnrolled, in)
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate enrollment")
	}
	return existing, false, nil
}

// Unenroll deactivates an active enrollment. The row stays in place; only
// IsActive flips, and the ledger gains an entry.
func (s *service) Unenroll(ctx context.Context, pathID, userID uuid.UUID, in TransitionInput) (*models.Enrollment, error) {
	path, err := s.repo().FindPathByID(ctx, pathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "learning path not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup learning path")
	}
	user, err := s.repo().FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	row, err := s.repo().ActiveEnrollment(ctx, userID, pathID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup enrollment")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active enrollment not found")
	}

	queue := dispatch.NewQueue(s.logg)
	row.IsActive = false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.sm.SaveEnrollment(ctx, tx, row, PriorState{WasActive: true}, in); err != nil {
			return err
		}
		if err := s.emitEnrollmentChanged(ctx, tx, row, path.Key, enums.TransitionEnrolledToUnenrolled, in); err != nil {
			return err
		}
		return s.emitCertificateRevoked(ctx, tx, queue, user.Username, path.Key, in)
	})
	if err != nil {
		queue.Discard()
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate enrollment")
	}
	if flushErr := queue.Flush(ctx); flushErr != nil && s.logg != nil {
		s.logg.Error(ctx, "unenrollment side effects failed", flushErr)
	}
	return row, nil
}

// BulkEnroll enrolls many emails across many learning paths. Existing
// accounts get enrollment rows; unknown emails get pre-registrations that
// resolve when the account is created. Each (path, learner) pair commits
// independently so one failure cannot roll back the rest.
func (s *service) BulkEnroll(ctx context.Context, req BulkRequest) (BulkEnrollResult, error) {
	var result BulkEnrollResult

	paths, users, emails, err := s.setupBulk(ctx, req)
	if err != nil {
		return result, err
	}

	known := make(map[string]struct{}, len(users))
	for _, user := range users {
		known[user.Email] = struct{}{}
	}
	var unknownEmails []string
	seen := make(map[string]struct{})
	for _, email := range emails {
		if _, ok := known[email]; ok {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		unknownEmails = append(unknownEmails, email)
	}

	var errs []error
	for i := range paths {
		path := &paths[i]

		for j := range users {
			user := &users[j]
			enrolled, err := s.bulkEnrollUser(ctx, path, user, req)
			if err != nil {
				errs = append(errs, err)
				s.logError(ctx, "bulk enroll user failed", err)
				continue
			}
			s.metrics.ObserveBulkItem("enroll")
			if enrolled {
				result.EnrollmentsCreated++
			}
		}

		for _, email := range unknownEmails {
			if !s.validEmail(email) {
				s.logWarn(ctx, fmt.Sprintf("bulk enroll: invalid email %q", email))
				continue
			}
			activated, err := s.bulkAllowEmail(ctx, path, email, req)
			if err != nil {
				errs = append(errs, err)
				s.logError(ctx, "bulk enroll email failed", err)
				continue
			}
			s.metrics.ObserveBulkItem("enroll")
			if activated {
				result.EnrollmentAllowedCreated++
			}
		}
	}

	return result, multierr.Combine(errs...)
}

// bulkEnrollUser applies one (path, user) enrollment. It reports whether the
// user actually became enrolled; re-affirming an active enrollment still
// writes an audit entry but reports false.
func (s *service) bulkEnrollUser(ctx context.Context, path *models.LearningPath, user *models.User, req BulkRequest) (bool, error) {
	enrolledNow, err := s.applyBulkEnroll(ctx, path, user, req)
	if err != nil && dbpkg.IsUniqueViolation(err, "idx_enrollments_user_path") {
		// Lost a creation race; the row exists now, re-apply against it.
		enrolledNow, err = s.applyBulkEnroll(ctx, path, user, req)
	}
	return enrolledNow, err
}

func (s *service) applyBulkEnroll(ctx context.Context, path *models.LearningPath, user *models.User, req BulkRequest) (bool, error) {
	enrolledNow := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := repo.FindEnrollment(ctx, user.ID, path.ID)
		if err != nil {
			return err
		}

		in := TransitionInput{
			Label:   enums.TransitionUnenrolledToEnrolled,
			ActorID: req.ActorID,
			Reason:  req.Reason,
			Org:     req.Org,
			Role:    req.Role,
		}
		prior := PriorState{}
		switch {
		case row == nil:
			row = &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
			prior.Created = true
			enrolledNow = true
		case !row.IsActive:
			prior.WasActive = false
			row.IsActive = true
			enrolledNow = true
		default:
			prior.WasActive = true
			in.Label = enums.TransitionEnrolledToEnrolled
		}

		if _, err := s.sm.SaveEnrollment(ctx, tx, row, prior, in); err != nil {
			return err
		}
		return s.emitEnrollmentChanged(ctx, tx, row, path.Key, in.Label, in)
	})
	if err != nil {
		enrolledNow = false
	}
	return enrolledNow, err
}

// bulkAllowEmail applies one (path, email) pre-registration. It reports
// whether the record was newly created or re-activated.
func (s *service) bulkAllowEmail(ctx context.Context, path *models.LearningPath, email string, req BulkRequest) (bool, error) {
	activated := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := repo.FindAllowed(ctx, email, path.ID)
		if err != nil {
			return err
		}

		prior := PriorState{}
		if row == nil {
			row = &models.EnrollmentAllowed{Email: email, LearningPathID: path.ID, IsActive: true}
			prior.Created = true
			activated = true
		} else if row.UserID == nil && !row.IsActive {
			row.IsActive = true
			activated = true
		}

		in := &TransitionInput{
			Label:   enums.TransitionUnenrolledToAllowed,
			ActorID: req.ActorID,
			Reason:  req.Reason,
			Org:     req.Org,
			Role:    req.Role,
		}
		_, err = s.sm.SaveAllowed(ctx, tx, row, prior, in)
		return err
	})
	if err != nil {
		activated = false
	}
	return activated, err
}

// BulkUnenroll deactivates enrollments and pre-registrations across many
// learning paths. Already-inactive records get a no-op audit entry and are
// not counted.
func (s *service) BulkUnenroll(ctx context.Context, req BulkRequest) (BulkUnenrollResult, error) {
	var result BulkUnenrollResult

	paths, users, emails, err := s.setupBulk(ctx, req)
	if err != nil {
		return result, err
	}

	var errs []error
	for i := range paths {
		path := &paths[i]

		for j := range users {
			user := &users[j]
			deactivated, found, err := s.bulkUnenrollUser(ctx, path, user, req)
			if err != nil {
				errs = append(errs, err)
				s.logError(ctx, "bulk unenroll user failed", err)
				continue
			}
			if found {
				s.metrics.ObserveBulkItem("unenroll")
			}
			if deactivated {
				result.EnrollmentsUnenrolled++
			}
		}

		for _, email := range emails {
			if !s.validEmail(email) {
				s.logWarn(ctx, fmt.Sprintf("bulk unenroll: invalid email %q", email))
				continue
			}
			deactivated, found, err := s.bulkDeactivateAllowed(ctx, path, email, req)
			if err != nil {
				errs = append(errs, err)
				s.logError(ctx, "bulk unenroll email failed", err)
				continue
			}
			if found {
				s.metrics.ObserveBulkItem("unenroll")
			}
			if deactivated {
				result.EnrollmentAllowedDeactivated++
			}
		}
	}

	return result, multierr.Combine(errs...)
}

func (s *service) bulkUnenrollUser(ctx context.Context, path *models.LearningPath, user *models.User, req BulkRequest) (deactivated, found bool, err error) {
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := repo.FindEnrollment(ctx, user.ID, path.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		found = true

		in := TransitionInput{
			ActorID: req.ActorID,
			Reason:  req.Reason,
			Org:     req.Org,
			Role:    req.Role,
		}
		prior := PriorState{WasActive: row.IsActive}
		if row.IsActive {
			in.Label = enums.TransitionEnrolledToUnenrolled
			row.IsActive = false
			deactivated = true
		} else {
			in.Label = enums.TransitionUnenrolledToUnenrolled
		}

		if _, err := s.sm.SaveEnrollment(ctx, tx, row, prior, in); err != nil {
			return err
		}
		return s.emitEnrollmentChanged(ctx, tx, row, path.Key, in.Label, in)
	})
	if err != nil {
		deactivated = false
	}
	return deactivated, found, err
}

func (s *service) bulkDeactivateAllowed(ctx context.Context, path *models.LearningPath, email string, req BulkRequest) (deactivated, found bool, err error) {
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := repo.FindAllowed(ctx, email, path.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		found = true

		in := &TransitionInput{
			ActorID: req.ActorID,
			Reason:  req.Reason,
			Org:     req.Org,
			Role:    req.Role,
		}
		if row.IsActive {
			in.Label = enums.TransitionAllowedToUnenrolled
			row.IsActive = false
			deactivated = true
		} else {
			in.Label = enums.TransitionUnenrolledToUnenrolled
		}

		_, err = s.sm.SaveAllowed(ctx, tx, row, PriorState{}, in)
		return err
	})
	if err != nil {
		deactivated = false
	}
	return deactivated, found, err
}

// ResolvePending promotes every active pre-registration matching the user's
// email into a real enrollment. Called when an account is created. Each
// promotion commits on its own, and the pre-registration is deactivated even
// when the promotion loses a creation race.
func (s *service) ResolvePending(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.repo().FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	pending, err := s.repo().ActiveAllowedByEmail(ctx, user.Email)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup pending enrollments")
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("processing %d pending enrollments", len(pending)))
	}

	created := 0
	for i := range pending {
		entry := &pending[i]

		in := TransitionInput{
			Label:   enums.TransitionAllowedToEnrolled,
			ActorID: &user.ID,
		}
		if last, err := s.repo().LatestAuditForAllowed(ctx, entry.ID); err == nil && last != nil {
			in.Reason = last.Reason
			in.Org = last.Org
			in.Role = last.Role
		}

		path, pathErr := s.repo().FindPathByID(ctx, entry.LearningPathID)
		pathKey := ""
		if pathErr == nil {
			pathKey = path.Key
		}

		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			row := &models.Enrollment{
				UserID:         user.ID,
				LearningPathID: entry.LearningPathID,
				IsActive:       true,
			}
			if _, err := s.sm.SaveEnrollment(ctx, tx, row, PriorState{Created: true}, in); err != nil {
				return err
			}
			if err := NewRepository(tx).ReparentAllowedAudits(ctx, entry.ID, row.ID); err != nil {
				return err
			}
			return s.emitEnrollmentChanged(ctx, tx, row, pathKey, enums.TransitionAllowedToEnrolled, in)
		})
		switch {
		case err == nil:
			created++
		case dbpkg.IsUniqueViolation(err, "idx_enrollments_user_path"):
			if s.logg != nil {
				s.logg.Info(logCtx, "enrollment already exists, skipping promotion")
			}
		default:
			s.logError(logCtx, "promoting pending enrollment failed", err)
		}

		// Deactivate the invitation regardless of the promotion outcome.
		// No audit entry here: the transition is recorded on the enrollment.
		entry.IsActive = false
		entry.UserID = &user.ID
		deactErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.sm.SaveAllowed(ctx, tx, entry, PriorState{}, nil)
			return err
		})
		if deactErr != nil {
			s.logError(logCtx, "deactivating pending enrollment failed", deactErr)
		}
	}

	if s.logg != nil {
		s.logg.Info(logCtx, fmt.Sprintf("processed %d pending enrollments", created))
	}
	return created, nil
}

// EnrollInPathCourse enrolls the user in a single course of a learning path
// they are actively enrolled in.
func (s *service) EnrollInPathCourse(ctx context.Context, pathID, userID uuid.UUID, courseKey string) error {
	if s.host == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "host lms not configured")
	}
	if _, err := keys.ParseCourseKey(courseKey); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	enrollment, err := s.repo().ActiveEnrollment(ctx, userID, pathID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup enrollment")
	}
	if enrollment == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "active enrollment not found")
	}

	isStep, err := s.repo().PathStepExists(ctx, pathID, courseKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup path step")
	}
	if !isStep {
		return pkgerrors.New(pkgerrors.CodeValidation, "the course is not part of this learning path")
	}

	user, err := s.repo().FindUserByID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := s.host.EnrollUserInCourse(ctx, user.Username, courseKey, enums.ModeAudit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll user in course")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "failed to enroll the user in the course")
	}
	return nil
}

// ListEnrollments returns the enrollment read model with user and path
// details resolved.
func (s *service) ListEnrollments(ctx context.Context, filter ListFilter) ([]EnrollmentDetail, error) {
	rows, err := s.listJoined(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list enrollments")
	}
	return rows, nil
}

// History returns the full audit ledger of one enrollment, oldest first.
func (s *service) History(ctx context.Context, enrollmentID uuid.UUID) ([]models.EnrollmentAudit, error) {
	rows, err := s.repo().AuditsForEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load enrollment history")
	}
	return rows, nil
}

// AllowedHistory returns the full audit ledger of one pre-registration,
// oldest first. Promoted rows stay readable here; they keep the allowed id
// after gaining the enrollment id.
func (s *service) AllowedHistory(ctx context.Context, allowedID uuid.UUID) ([]models.EnrollmentAudit, error) {
	rows, err := s.repo().AuditsForAllowed(ctx, allowedID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pre-registration history")
	}
	return rows, nil
}

// setupBulk resolves the learning paths and learner emails of a bulk request.
// Invalid path keys are dropped with a warning; group IDs expand to member
// emails and merge with the explicit email list.
func (s *service) setupBulk(ctx context.Context, req BulkRequest) ([]models.LearningPath, []models.User, []string, error) {
	var validKeys []string
	for _, key := range splitCSV(req.LearningPaths) {
		if _, err := keys.ParsePathKey(key); err != nil {
			s.logWarn(ctx, fmt.Sprintf("bulk operation: invalid learning path key %q", key))
			continue
		}
		validKeys = append(validKeys, key)
	}
	paths, err := s.repo().PathsByKeys(ctx, validKeys)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup learning paths")
	}

	emails := splitCSV(req.Emails)

	if groupIDs := s.parseGroupIDs(ctx, req.GroupIDs); len(groupIDs) > 0 {
		groupEmails, err := s.repo().MemberEmailsForGroups(ctx, groupIDs)
		if err != nil {
			return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup group members")
		}
		merged := make(map[string]struct{}, len(emails)+len(groupEmails))
		var combined []string
		for _, email := range append(emails, groupEmails...) {
			if _, ok := merged[email]; ok {
				continue
			}
			merged[email] = struct{}{}
			combined = append(combined, email)
		}
		emails = combined
	}

	users, err := s.repo().UsersByEmails(ctx, emails)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup users")
	}
	return paths, users, emails, nil
}

// parseGroupIDs parses the comma-separated group ID list. A single malformed
// ID voids the whole list, matching the all-or-nothing handling of the
// legacy bulk API.
func (s *service) parseGroupIDs(ctx context.Context, raw string) []uuid.UUID {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(part)
		if err != nil {
			s.logWarn(ctx, "bulk operation: invalid group_ids format")
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *service) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

// emitEnrollmentChanged records the state change as an outbox event within
// the committing transaction. No-op in inline mode.
func (s *service) emitEnrollmentChanged(ctx context.Context, tx *gorm.DB, row *models.Enrollment, pathKey string, label enums.StateTransition, in TransitionInput) error {
	if s.mode != dispatch.ModeOutbox || s.events == nil {
		return nil
	}
	var actor *outbox.ActorRef
	if in.ActorID != nil {
		actor = &outbox.ActorRef{UserID: *in.ActorID, Role: in.Role, Org: in.Org}
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentChanged,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   row.ID,
		Actor:         actor,
		Version:       1,
		Data: outbox.EnrollmentChangedPayload{
			UserID:          row.UserID,
			LearningPathKey: pathKey,
			Transition:      label.String(),
			IsActive:        row.IsActive,
			Reason:          in.Reason,
		},
	})
}

// emitCertificateRevoked schedules the credential revocation that follows an
// unenrollment: as an outbox event in outbox mode, or as a post-commit
// callback in inline mode.
func (s *service) emitCertificateRevoked(ctx context.Context, tx *gorm.DB, queue *dispatch.Queue, username, pathKey string, in TransitionInput) error {
	if s.mode == dispatch.ModeOutbox && s.events != nil {
		var actor *outbox.ActorRef
		if in.ActorID != nil {
			actor = &outbox.ActorRef{UserID: *in.ActorID, Role: in.Role, Org: in.Org}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCertificateRevoked,
			AggregateType: enums.AggregateCredential,
			AggregateID:   uuid.New(),
			Actor:         actor,
			Version:       1,
			Data: outbox.CertificateRevokedPayload{
				Username:        username,
				LearningPathKey: pathKey,
				Reason:          in.Reason,
			},
		})
	}
	if s.revoker != nil {
		queue.Register(func(cbCtx context.Context) error {
			return s.revoker.RevokeForLearningPath(cbCtx, username, pathKey)
		})
	}
	return nil
}

func (s *service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
