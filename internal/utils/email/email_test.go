package email

import (
	"errors"
	"io"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fail error) (*Sender, *[]*email.Email) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := NewSender(SMTPConfig{From: "planner@example.com"}, l)
	var sent []*email.Email
	s.send = func(e *email.Email) error {
		sent = append(sent, e)
		return fail
	}
	return s, &sent
}

func TestSendGoalFunded(t *testing.T) {
	t.Parallel()

	s, sent := capture(t, nil)
	require.NoError(t, s.SendGoalFunded("ann@example.com", "ann", "New bike", 40000))

	require.Len(t, *sent, 1)
	e := (*sent)[0]
	assert.Equal(t, []string{"ann@example.com"}, e.To)
	assert.Equal(t, "planner@example.com", e.From)
	assert.Equal(t, "Goal Funded: New bike", e.Subject)
	assert.Contains(t, string(e.Text), "$400.00")
}

func TestSendPlannerSkipped(t *testing.T) {
	t.Parallel()

	s, sent := capture(t, nil)
	require.NoError(t, s.SendPlannerSkipped("ann@example.com", "ann", []string{"budget overspent: dining"}))

	require.Len(t, *sent, 1)
	assert.Contains(t, string((*sent)[0].Text), "  - budget overspent: dining\n")
}

func TestSendFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("smtp down")
	s, _ := capture(t, boom)
	err := s.SendGoalFunded("ann@example.com", "ann", "New bike", 40000)
	assert.ErrorIs(t, err, boom)
}

func TestUnconfiguredSMTPDrops(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	assert.NoError(t, NewSender(SMTPConfig{}, l).SendPlannerSkipped("a@b.c", "a", nil))
}
