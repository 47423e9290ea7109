// Package milestones decides when a course completion counts as a milestone:
// the user has to clear the completion threshold and hold a passing grade
// before the milestone is fulfilled in the host platform.
package milestones

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlearnhq/learning-paths/internal/hostlms"
	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/dispatch"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/outbox"
)

// txRunner is the transactional surface needed to persist outbox events.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outcome reports what a block completion led to.
type Outcome string

const (
	// OutcomeFulfilled: the milestone was fulfilled in the host.
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeNotEligible: completion or grade below the thresholds.
	OutcomeNotEligible Outcome = "not_eligible"
	// OutcomeDeferred: an outbox event was recorded for the worker.
	OutcomeDeferred Outcome = "deferred"
)

// Service checks and fulfills course milestones.
type Service interface {
	Eligible(ctx context.Context, username, courseKey string) (bool, error)
	HandleBlockCompletion(ctx context.Context, username, courseKey string) (Outcome, error)
}

// Deps wires the service collaborators. DB and Events are only needed in
// outbox mode.
type Deps struct {
	Host   hostlms.Client
	DB     txRunner
	Events *outbox.Service
	Mode   dispatch.Mode
	Config config.MilestonesConfig
	Logger *logger.Logger
}

type service struct {
	host          hostlms.Client
	db            txRunner
	events        *outbox.Service
	mode          dispatch.Mode
	minCompletion float64
	logg          *logger.Logger
}

// NewService builds the milestone service.
func NewService(d Deps) (Service, error) {
	if d.Host == nil {
		return nil, fmt.Errorf("host lms client required")
	}
	if d.Mode == "" {
		d.Mode = dispatch.ModeInline
	}
	if d.Mode == dispatch.ModeOutbox && (d.DB == nil || d.Events == nil) {
		return nil, fmt.Errorf("db client and outbox service required in outbox mode")
	}
	minCompletion := d.Config.MinCompletionPercent
	if minCompletion <= 0 {
		minCompletion = 95
	}
	return &service{
		host:          d.Host,
		db:            d.DB,
		events:        d.Events,
		mode:          d.Mode,
		minCompletion: minCompletion,
		logg:          d.Logger,
	}, nil
}

// Eligible reports whether the user has cleared both thresholds for the
// course: completion at or above the configured minimum, and a passing grade.
func (s *service) Eligible(ctx context.Context, username, courseKey string) (bool, error) {
	completion, err := s.host.CourseCompletionPercent(ctx, username, courseKey)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch course completion")
	}
	if completion < s.minCompletion {
		return false, nil
	}
	grade, err := s.host.CourseGrade(ctx, username, courseKey)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch course grade")
	}
	return grade.Passed, nil
}

// HandleBlockCompletion reacts to a completed course block. In inline mode
// the eligibility check and fulfillment run immediately; in outbox mode the
// completion is recorded as an event and the worker picks it up.
func (s *service) HandleBlockCompletion(ctx context.Context, username, courseKey string) (Outcome, error) {
	if s.mode == dispatch.ModeOutbox {
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBlockCompleted,
				AggregateType: enums.AggregateCompletion,
				AggregateID:   uuid.New(),
				Version:       1,
				Data: outbox.BlockCompletedPayload{
					Username:  username,
					CourseKey: courseKey,
				},
			})
		})
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record block completion")
		}
		return OutcomeDeferred, nil
	}

	ok, err := s.Eligible(ctx, username, courseKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return OutcomeNotEligible, nil
	}

	if err := s.host.FulfillMilestone(ctx, username, courseKey); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill milestone")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"username":   username,
			"course_key": courseKey,
		})
		s.logg.Info(logCtx, "milestone fulfilled")
	}
	return OutcomeFulfilled, nil
}
