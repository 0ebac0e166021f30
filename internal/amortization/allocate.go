package amortization

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status classifies an installment as of a given day.
type Status string

const (
	StatusCurrent Status = "current"
	StatusOverdue Status = "overdue"
)

// Payment is an amount received on a date.
type Payment struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// AnnotatedInstallment is an installment with the payment pool applied.
type AnnotatedInstallment struct {
	Installment
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Status  Status          `json:"status"`
}

// Pool sums payment amounts. Dates are ignored.
func Pool(payments []Payment) decimal.Decimal {
	pool := decimal.Zero
	for _, p := range payments {
		pool = pool.Add(p.Amount)
	}
	return pool
}

// Allocate drains the pooled payments across the schedule oldest installment
// first, regardless of when each payment was made, and classifies every row.
// A row is overdue when it still has a pending amount and its due date falls
// strictly before asOf minus graceDays. Only calendar days are compared.
// Amounts are expected to be non-negative.
func Allocate(schedule Schedule, payments []Payment, asOf time.Time, graceDays int) []AnnotatedInstallment {
	rows := make([]AnnotatedInstallment, len(schedule))
	pool := Pool(payments)
	cutoff := civilDate(asOf).AddDate(0, 0, -graceDays)

	for i, inst := range schedule {
		paid := decimal.Zero
		if pool.IsPositive() {
			paid = decimal.Min(inst.ScheduledPayment, pool)
			pool = pool.Sub(paid)
		}
		pending := inst.ScheduledPayment.Sub(paid)

		status := StatusCurrent
		if pending.IsPositive() && civilDate(inst.DueDate).Before(cutoff) {
			status = StatusOverdue
		}
		rows[i] = AnnotatedInstallment{
			Installment: inst,
			Paid:        paid,
			Pending:     pending,
			Status:      status,
		}
	}
	return rows
}

// civilDate maps t to midnight UTC of its own calendar day so that dates
// recorded in different locations compare by day only.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
