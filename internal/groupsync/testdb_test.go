package groupsync

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	dbpkg "github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  is_staff INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS groups (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS group_memberships (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (group_id, user_id)
);`,
		`CREATE TABLE IF NOT EXISTS group_course_assignments (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  enrollment_mode TEXT NOT NULL DEFAULT 'audit',
  auto_enroll INTEGER NOT NULL DEFAULT 1,
  assigned_by_id TEXT,
  reason TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT idx_group_course_assignments_group_course UNIQUE (group_id, course_id)
);`,
		`CREATE TABLE IF NOT EXISTS group_course_enrollment_audits (
  id TEXT PRIMARY KEY,
  assignment_id TEXT,
  user_id TEXT,
  email TEXT NOT NULL DEFAULT '',
  enrolled_by_id TEXT,
  status TEXT NOT NULL DEFAULT 'success',
  error_message TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  org TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Username: username, Email: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedGroup(t *testing.T, db *gorm.DB, name string, members ...*models.User) *models.Group {
	t.Helper()
	group := &models.Group{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(group).Error)
	for _, member := range members {
		membership := &models.GroupMembership{ID: uuid.New(), GroupID: group.ID, UserID: member.ID}
		require.NoError(t, db.Create(membership).Error)
	}
	return group
}

func seedAssignment(t *testing.T, db *gorm.DB, groupID uuid.UUID, courseKey string, autoEnroll bool) *models.GroupCourseAssignment {
	t.Helper()
	row := &models.GroupCourseAssignment{
		ID:             uuid.New(),
		GroupID:        groupID,
		CourseID:       courseKey,
		EnrollmentMode: enums.ModeAudit,
		AutoEnroll:     autoEnroll,
		IsActive:       true,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func newTestService(t *testing.T, conn *gorm.DB, host hostlms.Client) Service {
	t.Helper()
	svc, err := NewService(Deps{
		DB:      dbpkg.FromConn(conn),
		Host:    host,
		Metrics: metrics.NewEnrollmentMetrics(nil),
	})
	require.NoError(t, err)
	return svc
}

func allAudits(t *testing.T, db *gorm.DB) []models.GroupCourseEnrollmentAudit {
	t.Helper()
	var rows []models.GroupCourseEnrollmentAudit
	require.NoError(t, db.Order("created_at ASC").Order("id ASC").Find(&rows).Error)
	return rows
}
