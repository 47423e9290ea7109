// Package dispatch queues side effects during a unit of work and runs them
// only after the storage transaction has committed. It replaces implicit
// post-save hooks: the service layer registers callbacks while mutating rows
// and flushes the queue once the commit succeeds, or discards it on rollback.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/openlearnhq/learning-paths/pkg/logger"
)

// Mode selects how deferred work is executed.
type Mode string

const (
	// ModeInline runs registered callbacks synchronously after commit.
	ModeInline Mode = "inline"
	// ModeOutbox persists events in the committing transaction and leaves
	// execution to the outbox publisher worker.
	ModeOutbox Mode = "outbox"
)

// ParseMode normalizes a configured mode string, defaulting to inline.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeOutbox:
		return ModeOutbox, nil
	case ModeInline, "":
		return ModeInline, nil
	}
	return "", fmt.Errorf("invalid dispatch mode %q", value)
}

// Callback is a deferred unit of post-commit work.
type Callback func(ctx context.Context) error

// Queue accumulates callbacks for one unit of work.
type Queue struct {
	mu        sync.Mutex
	callbacks []Callback
	logg      *logger.Logger
}

// NewQueue builds an empty callback queue.
func NewQueue(logg *logger.Logger) *Queue {
	return &Queue{logg: logg}
}

// Register appends a callback to run after the surrounding work commits.
func (q *Queue) Register(cb Callback) {
	if cb == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callbacks = append(q.callbacks, cb)
}

// Len reports how many callbacks are pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.callbacks)
}

// Flush runs every registered callback and clears the queue. Callback errors
// are collected, not short-circuited: one failing side effect must not stop
// the rest.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	pending := q.callbacks
	q.callbacks = nil
	q.mu.Unlock()

	var errs []error
	for _, cb := range pending {
		if err := cb(ctx); err != nil {
			if q.logg != nil {
				q.logg.Error(ctx, "post-commit callback failed", err)
			}
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// Discard drops all pending callbacks. Called when the unit of work rolls
// back.
func (q *Queue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callbacks = nil
}
