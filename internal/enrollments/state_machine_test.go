package enrollments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
)

func newTestStateMachine() *StateMachine {
	return NewStateMachine(nil, metrics.NewEnrollmentMetrics(nil))
}

func TestInferEnrollmentLabel(t *testing.T) {
	cases := []struct {
		name     string
		prior    PriorState
		isActive bool
		want     enums.StateTransition
	}{
		{"created active", PriorState{Created: true}, true, enums.TransitionUnenrolledToEnrolled},
		{"created inactive", PriorState{Created: true}, false, enums.TransitionUnenrolledToUnenrolled},
		{"activated", PriorState{WasActive: false}, true, enums.TransitionUnenrolledToEnrolled},
		{"deactivated", PriorState{WasActive: true}, false, enums.TransitionEnrolledToUnenrolled},
		{"re-affirmed", PriorState{WasActive: true}, true, enums.TransitionEnrolledToEnrolled},
		{"still inactive", PriorState{WasActive: false}, false, enums.TransitionUnenrolledToUnenrolled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferEnrollmentLabel(tc.prior, tc.isActive))
		})
	}
}

func TestTransitionLabelWording(t *testing.T) {
	// The audit values are part of the compliance export surface; the exact
	// wording must not drift.
	assert.Equal(t, "from unenrolled to allowed to enroll", enums.TransitionUnenrolledToAllowed.String())
	assert.Equal(t, "from allowed to enroll to enrolled", enums.TransitionAllowedToEnrolled.String())
	assert.Equal(t, "from enrolled to enrolled", enums.TransitionEnrolledToEnrolled.String())
	assert.Equal(t, "from enrolled to unenrolled", enums.TransitionEnrolledToUnenrolled.String())
	assert.Equal(t, "from unenrolled to enrolled", enums.TransitionUnenrolledToEnrolled.String())
	assert.Equal(t, "from allowed to enroll to unenrolled", enums.TransitionAllowedToUnenrolled.String())
	assert.Equal(t, "from unenrolled to unenrolled", enums.TransitionUnenrolledToUnenrolled.String())
	assert.Equal(t, "N/A", enums.TransitionDefault.String())
}

func TestSaveEnrollmentCreatesRowAndAudit(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	user := seedUser(t, db, "alice", "alice@example.com")
	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")
	actor := seedUser(t, db, "staff", "staff@example.com")

	row := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	audit, err := sm.SaveEnrollment(ctx, db, row, PriorState{Created: true}, TransitionInput{
		ActorID: &actor.ID,
		Reason:  "new cohort",
		Org:     "OLX",
	})
	require.NoError(t, err)
	require.NotNil(t, audit)

	assert.Equal(t, enums.TransitionUnenrolledToEnrolled, audit.StateTransition)
	assert.Equal(t, "new cohort", audit.Reason)
	assert.Equal(t, "OLX", audit.Org)
	require.NotNil(t, audit.EnrollmentID)
	assert.Equal(t, row.ID, *audit.EnrollmentID)
	assert.Nil(t, audit.EnrollmentAllowedID)

	var stored models.Enrollment
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.True(t, stored.IsActive)
}

func TestSaveEnrollmentInheritsMetadataFromPreviousAudit(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	user := seedUser(t, db, "bob", "bob@example.com")
	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	row := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	_, err := sm.SaveEnrollment(ctx, db, row, PriorState{Created: true}, TransitionInput{
		Reason: "initial reason",
		Org:    "OLX",
		Role:   "student",
	})
	require.NoError(t, err)

	// Reason left empty inherits; an explicit org overrides.
	row.IsActive = false
	audit, err := sm.SaveEnrollment(ctx, db, row, PriorState{WasActive: true}, TransitionInput{
		Org: "OtherOrg",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.TransitionEnrolledToUnenrolled, audit.StateTransition)
	assert.Equal(t, "initial reason", audit.Reason)
	assert.Equal(t, "OtherOrg", audit.Org)
	assert.Equal(t, "student", audit.Role)
}

func TestSaveEnrollmentExplicitLabelWins(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	user := seedUser(t, db, "carol", "carol@example.com")
	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	row := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	audit, err := sm.SaveEnrollment(ctx, db, row, PriorState{Created: true}, TransitionInput{
		Label: enums.TransitionAllowedToEnrolled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransitionAllowedToEnrolled, audit.StateTransition)
}

func TestSaveEnrollmentDuplicatePairFails(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	user := seedUser(t, db, "dave", "dave@example.com")
	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	first := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	_, err := sm.SaveEnrollment(ctx, db, first, PriorState{Created: true}, TransitionInput{})
	require.NoError(t, err)

	second := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	_, err = sm.SaveEnrollment(ctx, db, second, PriorState{Created: true}, TransitionInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}

func TestSaveAllowedWithoutInputWritesNoAudit(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	row := &models.EnrollmentAllowed{Email: "new@example.com", LearningPathID: path.ID, IsActive: true}
	audit, err := sm.SaveAllowed(ctx, db, row, PriorState{Created: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, audit)

	assert.Empty(t, allAudits(t, db))
}

func TestSaveAllowedDefaultsLabel(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")
	actor := seedUser(t, db, "staff", "staff@example.com")

	row := &models.EnrollmentAllowed{Email: "new@example.com", LearningPathID: path.ID, IsActive: true}
	audit, err := sm.SaveAllowed(ctx, db, row, PriorState{Created: true}, &TransitionInput{
		ActorID: &actor.ID,
		Reason:  "invited",
	})
	require.NoError(t, err)
	require.NotNil(t, audit)

	assert.Equal(t, enums.TransitionUnenrolledToAllowed, audit.StateTransition)
	require.NotNil(t, audit.EnrollmentAllowedID)
	assert.Equal(t, row.ID, *audit.EnrollmentAllowedID)
	assert.Nil(t, audit.EnrollmentID)
}

func TestSaveAllowedInheritsMetadata(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	row := &models.EnrollmentAllowed{Email: "new@example.com", LearningPathID: path.ID, IsActive: true}
	_, err := sm.SaveAllowed(ctx, db, row, PriorState{Created: true}, &TransitionInput{
		Reason: "cohort invite",
		Org:    "OLX",
	})
	require.NoError(t, err)

	row.IsActive = false
	audit, err := sm.SaveAllowed(ctx, db, row, PriorState{WasActive: true}, &TransitionInput{
		Label: enums.TransitionAllowedToUnenrolled,
	})
	require.NoError(t, err)

	assert.Equal(t, "cohort invite", audit.Reason)
	assert.Equal(t, "OLX", audit.Org)
}

func TestAuditLedgerIsAppendOnlyPerTransition(t *testing.T) {
	db := setupTestDB(t)
	sm := newTestStateMachine()
	ctx := context.Background()

	user := seedUser(t, db, "erin", "erin@example.com")
	path := seedPath(t, db, "path-v1:OLX+LP1+2026+all")

	row := &models.Enrollment{UserID: user.ID, LearningPathID: path.ID, IsActive: true}
	_, err := sm.SaveEnrollment(ctx, db, row, PriorState{Created: true}, TransitionInput{})
	require.NoError(t, err)

	row.IsActive = false
	_, err = sm.SaveEnrollment(ctx, db, row, PriorState{WasActive: true}, TransitionInput{})
	require.NoError(t, err)

	row.IsActive = true
	_, err = sm.SaveEnrollment(ctx, db, row, PriorState{WasActive: false}, TransitionInput{})
	require.NoError(t, err)

	audits := allAudits(t, db)
	require.Len(t, audits, 3)
	assert.Equal(t, enums.TransitionUnenrolledToEnrolled, audits[0].StateTransition)
	assert.Equal(t, enums.TransitionEnrolledToUnenrolled, audits[1].StateTransition)
	assert.Equal(t, enums.TransitionUnenrolledToEnrolled, audits[2].StateTransition)

	var enrollmentCount int64
	require.NoError(t, db.Model(&models.Enrollment{}).Count(&enrollmentCount).Error)
	assert.EqualValues(t, 1, enrollmentCount)
}
