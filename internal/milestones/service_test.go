package milestones

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	"github.com/openlearnhq/learning-paths/pkg/config"
	dbpkg "github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/dispatch"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/outbox"
)

const courseKey = "course-v1:OLX+C1+2026"

func newInlineService(t *testing.T, host hostlms.Client) Service {
	t.Helper()
	svc, err := NewService(Deps{
		Host: host,
		Mode: dispatch.ModeInline,
	})
	require.NoError(t, err)
	return svc
}

func TestHandleBlockCompletionFulfills(t *testing.T) {
	host := hostlms.NewStub()
	svc := newInlineService(t, host)
	ctx := context.Background()

	host.SetCompletion("alice", courseKey, 100)
	host.SetGrade("alice", courseKey, hostlms.Grade{Percent: 0.9, Passed: true})

	outcome, err := svc.HandleBlockCompletion(ctx, "alice", courseKey)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, outcome)
	assert.Equal(t, 1, host.MilestoneCount("alice", courseKey))
}

func TestHandleBlockCompletionBelowCompletionThreshold(t *testing.T) {
	host := hostlms.NewStub()
	svc := newInlineService(t, host)
	ctx := context.Background()

	host.SetCompletion("alice", courseKey, 94.9)
	host.SetGrade("alice", courseKey, hostlms.Grade{Percent: 0.9, Passed: true})

	outcome, err := svc.HandleBlockCompletion(ctx, "alice", courseKey)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotEligible, outcome)
	assert.Zero(t, host.MilestoneCount("alice", courseKey))
}

func TestHandleBlockCompletionFailingGrade(t *testing.T) {
	host := hostlms.NewStub()
	svc := newInlineService(t, host)
	ctx := context.Background()

	host.SetCompletion("alice", courseKey, 100)
	host.SetGrade("alice", courseKey, hostlms.Grade{Percent: 0.4, Passed: false})

	outcome, err := svc.HandleBlockCompletion(ctx, "alice", courseKey)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotEligible, outcome)
	assert.Zero(t, host.MilestoneCount("alice", courseKey))
}

func TestEligibleHonorsConfiguredThreshold(t *testing.T) {
	host := hostlms.NewStub()
	svc, err := NewService(Deps{
		Host:   host,
		Mode:   dispatch.ModeInline,
		Config: config.MilestonesConfig{MinCompletionPercent: 50},
	})
	require.NoError(t, err)
	ctx := context.Background()

	host.SetCompletion("alice", courseKey, 60)
	host.SetGrade("alice", courseKey, hostlms.Grade{Passed: true})

	ok, err := svc.Eligible(ctx, "alice", courseKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleBlockCompletionOutboxModeDefers(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)

	host := hostlms.NewStub()
	host.SetCompletion("alice", courseKey, 100)
	host.SetGrade("alice", courseKey, hostlms.Grade{Passed: true})

	client := dbpkg.FromConn(db)
	svc, err := NewService(Deps{
		Host:   host,
		DB:     client,
		Events: outbox.NewService(outbox.NewRepository(db), nil),
		Mode:   dispatch.ModeOutbox,
	})
	require.NoError(t, err)

	outcome, err := svc.HandleBlockCompletion(context.Background(), "alice", courseKey)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, outcome)

	// The host is not touched; the worker owns the follow-up.
	assert.Zero(t, host.MilestoneCount("alice", courseKey))

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventBlockCompleted, events[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload outbox.BlockCompletedPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, courseKey, payload.CourseKey)
}

func TestNewServiceRequiresOutboxWiring(t *testing.T) {
	_, err := NewService(Deps{Host: hostlms.NewStub(), Mode: dispatch.ModeOutbox})
	require.Error(t, err)
}
