package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/money"
)

// SMTPConfig is the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender. With no SMTP host configured the
// sender only logs.
func NewSender(cfg SMTPConfig, logger *logrus.Logger) *Sender {
	s := &Sender{cfg: cfg, logger: logger}
	s.send = s.smtpSend
	return s
}

func (s *Sender) smtpSend(e *email.Email) error {
	if s.cfg.Host == "" {
		s.logger.Debugf("SMTP not configured, dropping email to %v: %s", e.To, e.Subject)
		return nil
	}
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	return e.Send(addr, auth)
}

// SendGoalFunded tells the user a purchase goal reached its target
func (s *Sender) SendGoalFunded(to, username, goalName string, target money.Cents) error {
	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += fmt.Sprintf(
		"Your goal \"%s\" is fully funded.\n"+
			"A total of %s has been set aside for it.\n",
		goalName, target,
	)
	body += "\nBest regards,\nPayoff Planner"
	return s.deliver(to, "Goal Funded: "+goalName, body)
}

// SendPlannerSkipped explains why this period's allocation was held back
func (s *Sender) SendPlannerSkipped(to, username string, reasons []string) error {
	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += "We did not set money aside for your goals this period because recent activity looks unusual:\n"
	for _, r := range reasons {
		body += "  - " + r + "\n"
	}
	body += "Allocation resumes automatically next period.\n"
	body += "\nBest regards,\nPayoff Planner"
	return s.deliver(to, "Goal Allocation Paused", body)
}

func (s *Sender) deliver(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, strings.TrimSpace(e.Subject))
	return nil
}
