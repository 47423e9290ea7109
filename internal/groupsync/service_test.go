package groupsync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
)

func TestAddMemberEnrollsAutoEnrollAssignmentsOnly(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	user := seedUser(t, db, "alice", "alice@example.com")
	group := seedGroup(t, db, "Cohort A")
	auto := seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)
	seedAssignment(t, db, group.ID, "course-v1:OLX+C2+2026", false)

	require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))

	assert.True(t, host.IsEnrolled("alice", "course-v1:OLX+C1+2026"))
	assert.False(t, host.IsEnrolled("alice", "course-v1:OLX+C2+2026"))

	var membership models.GroupMembership
	require.NoError(t, db.First(&membership, "group_id = ? AND user_id = ?", group.ID, user.ID).Error)

	audits := allAudits(t, db)
	require.Len(t, audits, 1)
	assert.Equal(t, enums.GroupAuditSuccess, audits[0].Status)
	assert.Equal(t, "Auto-enrollment via group membership in Cohort A", audits[0].Reason)
	require.NotNil(t, audits[0].AssignmentID)
	assert.Equal(t, auto.ID, *audits[0].AssignmentID)
	require.NotNil(t, audits[0].EnrolledByID)
	assert.Equal(t, user.ID, *audits[0].EnrolledByID)
	assert.Equal(t, "alice@example.com", audits[0].Email)
}

func TestAddMemberSkipsAlreadyEnrolled(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	user := seedUser(t, db, "bob", "bob@example.com")
	group := seedGroup(t, db, "Cohort B")
	seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)

	_, err := host.EnrollUserInCourse(ctx, "bob", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))

	audits := allAudits(t, db)
	require.Len(t, audits, 1)
	assert.Equal(t, enums.GroupAuditSkipped, audits[0].Status)
	assert.Equal(t, "Auto-enrollment via group membership in Cohort B - already enrolled", audits[0].Reason)
	assert.Empty(t, audits[0].ErrorMessage)
}

func TestAddMemberRecordsHostFailure(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	host.EnrollErr = errors.New("host unavailable")
	svc := newTestService(t, db, host)
	ctx := context.Background()

	user := seedUser(t, db, "carol", "carol@example.com")
	group := seedGroup(t, db, "Cohort C")
	seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)

	// The membership operation itself still succeeds.
	require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))

	audits := allAudits(t, db)
	require.Len(t, audits, 1)
	assert.Equal(t, enums.GroupAuditFailed, audits[0].Status)
	assert.Equal(t, "host unavailable", audits[0].ErrorMessage)
}

func TestRemoveMemberUnenrollsAllActiveAssignments(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	user := seedUser(t, db, "dave", "dave@example.com")
	group := seedGroup(t, db, "Cohort D", user)
	seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)
	seedAssignment(t, db, group.ID, "course-v1:OLX+C2+2026", false)

	for _, courseKey := range []string{"course-v1:OLX+C1+2026", "course-v1:OLX+C2+2026"} {
		_, err := host.EnrollUserInCourse(ctx, "dave", courseKey, enums.ModeAudit)
		require.NoError(t, err)
	}

	require.NoError(t, svc.RemoveMember(ctx, group.ID, user.ID))

	// Removal covers every active assignment, not just the auto-enroll ones.
	assert.False(t, host.IsEnrolled("dave", "course-v1:OLX+C1+2026"))
	assert.False(t, host.IsEnrolled("dave", "course-v1:OLX+C2+2026"))

	var memberships int64
	require.NoError(t, db.Model(&models.GroupMembership{}).Count(&memberships).Error)
	assert.Zero(t, memberships)

	audits := allAudits(t, db)
	require.Len(t, audits, 2)
	for _, audit := range audits {
		assert.Equal(t, enums.GroupAuditSuccess, audit.Status)
		assert.Equal(t, "Auto-unenrollment via group removal from Cohort D", audit.Reason)
	}
}

func TestRemoveMemberUnknownGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())

	user := seedUser(t, db, "erin", "erin@example.com")
	err := svc.RemoveMember(context.Background(), user.ID, user.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteAssignmentUnenrollsMembers(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	group := seedGroup(t, db, "Cohort A", alice, bob)
	assignment := seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)

	for _, username := range []string{"alice", "bob"} {
		_, err := host.EnrollUserInCourse(ctx, username, "course-v1:OLX+C1+2026", enums.ModeAudit)
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteAssignment(ctx, assignment.ID, nil))

	var count int64
	require.NoError(t, db.Model(&models.GroupCourseAssignment{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.False(t, host.IsEnrolled("alice", "course-v1:OLX+C1+2026"))
	assert.False(t, host.IsEnrolled("bob", "course-v1:OLX+C1+2026"))

	// The trail survives the deleted row: no assignment reference, but the
	// reason names the group and course.
	audits := allAudits(t, db)
	require.Len(t, audits, 2)
	for _, audit := range audits {
		assert.Nil(t, audit.AssignmentID)
		assert.Equal(t, enums.GroupAuditSuccess, audit.Status)
		assert.Equal(t,
			"Auto-unenrollment due to deletion of group-course assignment: Cohort A → course-v1:OLX+C1+2026",
			audit.Reason)
	}
}

func TestDeleteAssignmentNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())

	user := seedUser(t, db, "alice", "alice@example.com")
	err := svc.DeleteAssignment(context.Background(), user.ID, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestBulkEnrollGroupsCreatesAssignmentsAndEnrollments(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	staff := seedUser(t, db, "staff", "staff@example.com")
	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	group := seedGroup(t, db, "Cohort A", alice, bob)

	result, err := svc.BulkEnrollGroups(ctx, BulkGroupEnrollRequest{
		GroupIDs:          []uuid.UUID{group.ID},
		CourseKeys:        []string{"course-v1:OLX+C1+2026", "course-v1:OLX+C2+2026"},
		CreateAssignments: true,
		Reason:            "semester kickoff",
		ActorID:           &staff.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.EnrollmentsCreated)
	assert.Zero(t, result.EnrollmentsFailed)
	assert.Equal(t, 2, result.AssignmentsCreated)

	assert.True(t, host.IsEnrolled("alice", "course-v1:OLX+C1+2026"))
	assert.True(t, host.IsEnrolled("bob", "course-v1:OLX+C2+2026"))

	audits := allAudits(t, db)
	require.Len(t, audits, 4)
	for _, audit := range audits {
		assert.Equal(t, enums.GroupAuditSuccess, audit.Status)
		assert.Equal(t, "semester kickoff", audit.Reason)
		require.NotNil(t, audit.AssignmentID)
		require.NotNil(t, audit.EnrolledByID)
		assert.Equal(t, staff.ID, *audit.EnrolledByID)
	}
}

func TestBulkEnrollGroupsCountsHostRefusalAsFailed(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	group := seedGroup(t, db, "Cohort A", alice)

	_, err := host.EnrollUserInCourse(ctx, "alice", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.NoError(t, err)

	result, err := svc.BulkEnrollGroups(ctx, BulkGroupEnrollRequest{
		GroupIDs:   []uuid.UUID{group.ID},
		CourseKeys: []string{"course-v1:OLX+C1+2026"},
	})
	require.NoError(t, err)

	assert.Zero(t, result.EnrollmentsCreated)
	assert.Equal(t, 1, result.EnrollmentsFailed)

	audits := allAudits(t, db)
	require.Len(t, audits, 1)
	assert.Equal(t, enums.GroupAuditFailed, audits[0].Status)
	assert.Equal(t, "Enrollment failed", audits[0].ErrorMessage)
}

func TestBulkEnrollGroupsRejectsInvalidCourseKey(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())

	group := seedGroup(t, db, "Cohort A")
	_, err := svc.BulkEnrollGroups(context.Background(), BulkGroupEnrollRequest{
		GroupIDs:   []uuid.UUID{group.ID},
		CourseKeys: []string{"not-a-course-key"},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestBulkEnrollGroupsRejectsUnknownGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())

	_, err := svc.BulkEnrollGroups(context.Background(), BulkGroupEnrollRequest{
		GroupIDs:   []uuid.UUID{uuid.New()},
		CourseKeys: []string{"course-v1:OLX+C1+2026"},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSyncAssignmentsEnrollsNewMembersAndSkipsExisting(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	group := seedGroup(t, db, "Cohort A", alice, bob)
	assignment := seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)
	assignment.Reason = "cohort sync"
	require.NoError(t, db.Save(assignment).Error)

	_, err := host.EnrollUserInCourse(ctx, "alice", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.NoError(t, err)

	result, err := svc.SyncAssignments(ctx, SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Enrolled)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)
	assert.True(t, host.IsEnrolled("bob", "course-v1:OLX+C1+2026"))

	audits := allAudits(t, db)
	require.Len(t, audits, 2)
	byEmail := make(map[string]models.GroupCourseEnrollmentAudit, 2)
	for _, audit := range audits {
		byEmail[audit.Email] = audit
	}
	assert.Equal(t, enums.GroupAuditSkipped, byEmail["alice@example.com"].Status)
	assert.Equal(t, "cohort sync - already enrolled", byEmail["alice@example.com"].Reason)
	assert.Equal(t, enums.GroupAuditSuccess, byEmail["bob@example.com"].Status)
	assert.Equal(t, "cohort sync", byEmail["bob@example.com"].Reason)
}

func TestSyncAssignmentsBySelectedIDs(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	group := seedGroup(t, db, "Cohort A", alice)
	chosen := seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)
	seedAssignment(t, db, group.ID, "course-v1:OLX+C2+2026", true)

	result, err := svc.SyncAssignments(ctx, SyncRequest{AssignmentIDs: []uuid.UUID{chosen.ID}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Enrolled)
	assert.True(t, host.IsEnrolled("alice", "course-v1:OLX+C1+2026"))
	assert.False(t, host.IsEnrolled("alice", "course-v1:OLX+C2+2026"))
}

func TestCreateAssignmentConflictsAndReactivates(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())
	ctx := context.Background()

	group := seedGroup(t, db, "Cohort A")

	created, err := svc.CreateAssignment(ctx, CreateAssignmentInput{
		GroupID:   group.ID,
		CourseKey: "course-v1:OLX+C1+2026",
		Reason:    "initial",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.True(t, created.AutoEnroll)
	assert.Equal(t, enums.ModeAudit, created.EnrollmentMode)

	_, err = svc.CreateAssignment(ctx, CreateAssignmentInput{
		GroupID:   group.ID,
		CourseKey: "course-v1:OLX+C1+2026",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	created.IsActive = false
	require.NoError(t, db.Save(created).Error)

	reactivated, err := svc.CreateAssignment(ctx, CreateAssignmentInput{
		GroupID:   group.ID,
		CourseKey: "course-v1:OLX+C1+2026",
		Reason:    "second run",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, reactivated.ID)
	assert.True(t, reactivated.IsActive)
	assert.Equal(t, "second run", reactivated.Reason)
}

func TestListGroupsWithMemberCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	seedGroup(t, db, "Alpha", alice, bob)
	seedGroup(t, db, "Beta")

	groups, err := svc.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Alpha", groups[0].Name)
	assert.EqualValues(t, 2, groups[0].MemberCount)
	assert.Equal(t, "Beta", groups[1].Name)
	assert.Zero(t, groups[1].MemberCount)
}

func TestListAssignmentsResolvesGroupNames(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, hostlms.NewStub())
	ctx := context.Background()

	group := seedGroup(t, db, "Cohort A")
	seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)

	assignments, err := svc.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Cohort A", assignments[0].GroupName)
	assert.Equal(t, "course-v1:OLX+C1+2026", assignments[0].CourseKey)
}

func TestAssignmentHistoryIsChronological(t *testing.T) {
	db := setupTestDB(t)
	host := hostlms.NewStub()
	svc := newTestService(t, db, host)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	group := seedGroup(t, db, "Cohort A", alice)
	assignment := seedAssignment(t, db, group.ID, "course-v1:OLX+C1+2026", true)

	_, err := svc.SyncAssignments(ctx, SyncRequest{AssignmentIDs: []uuid.UUID{assignment.ID}})
	require.NoError(t, err)
	_, err = svc.SyncAssignments(ctx, SyncRequest{AssignmentIDs: []uuid.UUID{assignment.ID}})
	require.NoError(t, err)

	history, err := svc.AssignmentHistory(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, enums.GroupAuditSuccess, history[0].Status)
	assert.Equal(t, enums.GroupAuditSkipped, history[1].Status)
}
