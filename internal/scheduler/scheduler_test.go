package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls    int
	deadline bool
	err      error
}

func (c *countingRunner) RunScheduledPlanners(ctx context.Context) error {
	c.calls++
	_, c.deadline = ctx.Deadline()
	return c.err
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewRejectsBadSpec(t *testing.T) {
	t.Parallel()

	_, err := New("every tuesday", &countingRunner{}, quiet(), 0)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	r := &countingRunner{}
	s, err := New("0 6 * * *", r, quiet(), time.Minute)
	require.NoError(t, err)

	s.runOnce()
	assert.Equal(t, 1, r.calls)
	assert.True(t, r.deadline)

	r.err = errors.New("db down")
	s.runOnce()
	assert.Equal(t, 2, r.calls)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s, err := New("@every 1h", &countingRunner{}, quiet(), 0)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
