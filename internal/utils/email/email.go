package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendInstallmentReminder sends an upcoming or overdue installment notice
func (s *Sender) SendInstallmentReminder(to, clientName string, loanID int64, row amortization.AnnotatedInstallment) error {
	e := s.buildReminder(to, clientName, loanID, row)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) buildReminder(to, clientName string, loanID int64, row amortization.AnnotatedInstallment) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}

	overdue := row.Status == amortization.StatusOverdue
	if overdue {
		e.Subject = fmt.Sprintf("Overdue installment #%d on loan %d", row.Period, loanID)
	} else {
		e.Subject = fmt.Sprintf("Upcoming installment #%d on loan %d", row.Period, loanID)
	}

	body := fmt.Sprintf("Dear %s,\n\n", clientName)
	if overdue {
		body += fmt.Sprintf(
			"Installment #%d of loan %d was due on %s and is now overdue.\n"+
				"Amount due: %s, already paid: %s, pending: %s.\n"+
				"Please make the payment as soon as possible.\n",
			row.Period, loanID, row.DueDate.Format("02-01-2006"),
			row.ScheduledPayment.StringFixed(2), row.Paid.StringFixed(2), row.Pending.StringFixed(2),
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that installment #%d of loan %d is due on %s.\n"+
				"Pending amount: %s.\n",
			row.Period, loanID, row.DueDate.Format("02-01-2006"), row.Pending.StringFixed(2),
		)
	}
	body += "\nBest regards,\nLoan Service"
	e.Text = []byte(body)
	return e
}
