package enrollments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
)

// PriorState captures where an entity was before the mutation being saved.
// Callers pass it explicitly so the transition label never depends on hidden
// model state.
type PriorState struct {
	Created   bool
	WasActive bool
}

// TransitionInput carries the audit metadata for one state change. An empty
// Label is inferred from the prior and new state; reason/org/role left empty
// are inherited from the entity's most recent audit entry.
type TransitionInput struct {
	Label   enums.StateTransition
	ActorID *uuid.UUID
	Reason  string
	Org     string
	Role    string
}

// StateMachine persists enrollment state changes together with their audit
// entries. Row save and audit append always happen inside the same
// transaction handle, so an enrollment can never change state without a
// matching ledger entry.
type StateMachine struct {
	logg    *logger.Logger
	metrics *metrics.EnrollmentMetrics
}

func NewStateMachine(logg *logger.Logger, m *metrics.EnrollmentMetrics) *StateMachine {
	return &StateMachine{logg: logg, metrics: m}
}

// SaveEnrollment persists the enrollment row and appends exactly one audit
// entry describing the transition.
func (sm *StateMachine) SaveEnrollment(
	ctx context.Context,
	tx *gorm.DB,
	row *models.Enrollment,
	prior PriorState,
	in TransitionInput,
) (*models.EnrollmentAudit, error) {
	repo := NewRepository(tx)

	if prior.Created {
		if err := repo.CreateEnrollment(ctx, row); err != nil {
			return nil, err
		}
	} else {
		if err := repo.SaveEnrollment(ctx, row); err != nil {
			return nil, err
		}
	}

	label := in.Label
	if !labelProvided(label) {
		label = inferEnrollmentLabel(prior, row.IsActive)
	}

	previous, err := repo.LatestAuditForEnrollment(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	reason, org, role := inheritMetadata(in, previous)

	audit := &models.EnrollmentAudit{
		EnrollmentID:    &row.ID,
		ActorID:         in.ActorID,
		StateTransition: label,
		Reason:          reason,
		Org:             org,
		Role:            role,
	}
	if err := repo.AppendAudit(ctx, audit); err != nil {
		return nil, err
	}

	sm.metrics.ObserveTransition(label)
	if sm.logg != nil {
		logCtx := sm.logg.WithFields(ctx, map[string]any{
			"enrollment_id": row.ID.String(),
			"transition":    label.String(),
		})
		sm.logg.Debug(logCtx, "enrollment state saved")
	}
	return audit, nil
}

// SaveAllowed persists a pre-registration row. When in is nil the row is
// saved without touching the ledger; this is how promotions deactivate the
// record without double-auditing a transition that is already recorded on
// the enrollment side.
func (sm *StateMachine) SaveAllowed(
	ctx context.Context,
	tx *gorm.DB,
	row *models.EnrollmentAllowed,
	prior PriorState,
	in *TransitionInput,
) (*models.EnrollmentAudit, error) {
	repo := NewRepository(tx)

	if prior.Created {
		if err := repo.CreateAllowed(ctx, row); err != nil {
			return nil, err
		}
	} else {
		if err := repo.SaveAllowed(ctx, row); err != nil {
			return nil, err
		}
	}

	if in == nil {
		return nil, nil
	}

	label := in.Label
	if !labelProvided(label) {
		label = enums.TransitionUnenrolledToAllowed
	}

	previous, err := repo.LatestAuditForAllowed(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	reason, org, role := inheritMetadata(*in, previous)

	audit := &models.EnrollmentAudit{
		EnrollmentAllowedID: &row.ID,
		ActorID:             in.ActorID,
		StateTransition:     label,
		Reason:              reason,
		Org:                 org,
		Role:                role,
	}
	if err := repo.AppendAudit(ctx, audit); err != nil {
		return nil, err
	}

	sm.metrics.ObserveTransition(label)
	return audit, nil
}

func labelProvided(label enums.StateTransition) bool {
	return label != "" && label != enums.TransitionDefault
}

// inferEnrollmentLabel derives the canonical transition label from the
// before/after activity of the row.
func inferEnrollmentLabel(prior PriorState, isActive bool) enums.StateTransition {
	if prior.Created {
		if isActive {
			return enums.TransitionUnenrolledToEnrolled
		}
		return enums.TransitionUnenrolledToUnenrolled
	}
	switch {
	case isActive && !prior.WasActive:
		return enums.TransitionUnenrolledToEnrolled
	case !isActive && prior.WasActive:
		return enums.TransitionEnrolledToUnenrolled
	case isActive && prior.WasActive:
		return enums.TransitionEnrolledToEnrolled
	default:
		return enums.TransitionUnenrolledToUnenrolled
	}
}

// inheritMetadata fills empty reason/org/role fields from the entity's most
// recent audit entry so context set once carries through later transitions.
func inheritMetadata(in TransitionInput, previous *models.EnrollmentAudit) (reason, org, role string) {
	reason, org, role = in.Reason, in.Org, in.Role
	if previous == nil {
		return reason, org, role
	}
	if reason == "" {
		reason = previous.Reason
	}
	if org == "" {
		org = previous.Org
	}
	if role == "" {
		role = previous.Role
	}
	return reason, org, role
}
