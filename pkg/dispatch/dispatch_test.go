package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeInline, mode)

	mode, err = ParseMode(" OUTBOX ")
	require.NoError(t, err)
	assert.Equal(t, ModeOutbox, mode)

	_, err = ParseMode("celery")
	assert.Error(t, err)
}

func TestFlushRunsAllCallbacksOnce(t *testing.T) {
	q := NewQueue(nil)
	calls := 0
	q.Register(func(context.Context) error { calls++; return nil })
	q.Register(func(context.Context) error { calls++; return nil })
	require.Equal(t, 2, q.Len())

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestFlushCollectsErrorsWithoutStopping(t *testing.T) {
	q := NewQueue(nil)
	var ran []string
	q.Register(func(context.Context) error { ran = append(ran, "a"); return errors.New("a failed") })
	q.Register(func(context.Context) error { ran = append(ran, "b"); return nil })
	q.Register(func(context.Context) error { ran = append(ran, "c"); return errors.New("c failed") })

	err := q.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "c failed")
}

func TestDiscardDropsPendingWork(t *testing.T) {
	q := NewQueue(nil)
	calls := 0
	q.Register(func(context.Context) error { calls++; return nil })
	q.Discard()

	require.NoError(t, q.Flush(context.Background()))
	assert.Zero(t, calls)
}

func TestRegisterNilCallbackIsIgnored(t *testing.T) {
	q := NewQueue(nil)
	q.Register(nil)
	assert.Zero(t, q.Len())
}
