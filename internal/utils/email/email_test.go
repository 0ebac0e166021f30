package email

import (
	"io"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testSender() *Sender {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSender(&config.Config{SenderEmail: "loans@example.com", SMTPHost: "127.0.0.1", SMTPPort: "1"}, logger)
}

func row(status amortization.Status) amortization.AnnotatedInstallment {
	return amortization.AnnotatedInstallment{
		Installment: amortization.Installment{
			Period:           3,
			DueDate:          time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			ScheduledPayment: decimal.RequireFromString("106.62"),
		},
		Paid:    decimal.RequireFromString("6.62"),
		Pending: decimal.RequireFromString("100"),
		Status:  status,
	}
}

func TestBuildReminder_Overdue(t *testing.T) {
	e := testSender().buildReminder("ana@example.com", "Ana", 42, row(amortization.StatusOverdue))

	assert.Equal(t, "loans@example.com", e.From)
	assert.Equal(t, []string{"ana@example.com"}, e.To)
	assert.Equal(t, "Overdue installment #3 on loan 42", e.Subject)
	body := string(e.Text)
	assert.Contains(t, body, "Dear Ana")
	assert.Contains(t, body, "01-04-2024")
	assert.Contains(t, body, "pending: 100.00")
}

func TestBuildReminder_Upcoming(t *testing.T) {
	e := testSender().buildReminder("ana@example.com", "Ana", 42, row(amortization.StatusCurrent))

	assert.Equal(t, "Upcoming installment #3 on loan 42", e.Subject)
	assert.Contains(t, string(e.Text), "Pending amount: 100.00")
}

func TestSendInstallmentReminder_SMTPFailure(t *testing.T) {
	err := testSender().SendInstallmentReminder("ana@example.com", "Ana", 42, row(amortization.StatusOverdue))
	assert.Error(t, err)
}
