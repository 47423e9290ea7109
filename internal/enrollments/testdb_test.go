package enrollments

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
	"github.com/openlearnhq/learning-paths/pkg/dispatch"
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
		`CREATE TABLE IF NOT EXISTS learning_paths (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  subtitle TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  level TEXT,
  duration TEXT NOT NULL DEFAULT '',
  time_commitment TEXT NOT NULL DEFAULT '',
  sequential INTEGER NOT NULL DEFAULT 0,
  invite_only INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS learning_path_steps (
  id TEXT PRIMARY KEY,
  learning_path_id TEXT NOT NULL,
  course_key TEXT NOT NULL,
  position INTEGER,
  weight REAL NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (learning_path_id, course_key)
);`,
		`CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  learning_path_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT idx_enrollments_user_path UNIQUE (user_id, learning_path_id)
);`,
		`CREATE TABLE IF NOT EXISTS enrollment_allowed (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  learning_path_id TEXT NOT NULL,
  user_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT idx_enrollment_allowed_email_path UNIQUE (email, learning_path_id)
);`,
		`CREATE TABLE IF NOT EXISTS enrollment_audits (
  id TEXT PRIMARY KEY,
  enrollment_id TEXT,
  enrollment_allowed_id TEXT,
  actor_id TEXT,
  state_transition TEXT NOT NULL DEFAULT 'N/A',
  reason TEXT NOT NULL DEFAULT '',
  org TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT '',
  created_at DATETIME
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

func seedPath(t *testing.T, db *gorm.DB, key string) *models.LearningPath {
	t.Helper()
	path := &models.LearningPath{
		ID:          uuid.New(),
		Key:         key,
		DisplayName: key,
		InviteOnly:  true,
	}
	require.NoError(t, db.Create(path).Error)
	return path
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

func seedStep(t *testing.T, db *gorm.DB, pathID uuid.UUID, courseKey string) *models.LearningPathStep {
	t.Helper()
	step := &models.LearningPathStep{
		ID:             uuid.New(),
		LearningPathID: pathID,
		CourseKey:      courseKey,
		Weight:         1,
	}
	require.NoError(t, db.Create(step).Error)
	return step
}

func newTestService(t *testing.T, conn *gorm.DB, host hostlms.Client) Service {
	t.Helper()
	svc, err := NewService(Deps{
		DB:           dbpkg.FromConn(conn),
		StateMachine: NewStateMachine(nil, metrics.NewEnrollmentMetrics(nil)),
		Host:         host,
		Mode:         dispatch.ModeInline,
		Metrics:      metrics.NewEnrollmentMetrics(nil),
	})
	require.NoError(t, err)
	return svc
}

func newTestServiceWithRevoker(t *testing.T, conn *gorm.DB, revoker CredentialRevoker) Service {
	t.Helper()
	svc, err := NewService(Deps{
		DB:           dbpkg.FromConn(conn),
		StateMachine: NewStateMachine(nil, metrics.NewEnrollmentMetrics(nil)),
		Revoker:      revoker,
		Mode:         dispatch.ModeInline,
		Metrics:      metrics.NewEnrollmentMetrics(nil),
	})
	require.NoError(t, err)
	return svc
}

func allAudits(t *testing.T, db *gorm.DB) []models.EnrollmentAudit {
	t.Helper()
	var rows []models.EnrollmentAudit
	require.NoError(t, db.Order("created_at ASC").Order("id ASC").Find(&rows).Error)
	return rows
}
