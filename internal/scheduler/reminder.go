// Package scheduler runs the periodic installment reminder job.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/metrics"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Loans is what the reminder job reads
type Loans interface {
	ListLoans(ctx context.Context) ([]models.Loan, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	LoanSchedule(ctx context.Context, loanID int64) (*models.LoanSchedule, error)
}

// Notifier delivers one reminder about one installment
type Notifier interface {
	SendInstallmentReminder(to, clientName string, loanID int64, row amortization.AnnotatedInstallment) error
}

// Reminder emails borrowers about overdue installments and installments
// falling due within the lookahead window
type Reminder struct {
	loans     Loans
	notifier  Notifier
	log       *logrus.Logger
	lookahead int
	cron      *cron.Cron
}

// RunStats reports what one run did
type RunStats struct {
	Loans    int
	Overdue  int
	Upcoming int
	Sent     int
	Failed   int
}

// NewReminder creates the job. lookaheadDays is counted from the schedule's as-of day.
func NewReminder(loans Loans, notifier Notifier, log *logrus.Logger, lookaheadDays int) *Reminder {
	return &Reminder{
		loans:     loans,
		notifier:  notifier,
		log:       log,
		lookahead: lookaheadDays,
	}
}

// Start schedules RunOnce on the given cron spec
func (r *Reminder) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.log.Errorf("Reminder run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	r.log.Infof("Reminder job scheduled: %s", spec)
	return nil
}

// Stop waits for a running job to finish
func (r *Reminder) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce checks every loan and sends the due reminders. A loan whose schedule
// cannot be computed or a reminder that cannot be delivered is logged and skipped.
func (r *Reminder) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats
	loans, err := r.loans.ListLoans(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list loans: %w", err)
	}

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Loans++
		entry := r.log.WithField("loan_id", loan.ID)

		sched, err := r.loans.LoanSchedule(ctx, loan.ID)
		if err != nil {
			entry.Warnf("Skipping reminders: %v", err)
			continue
		}
		due := r.dueRows(sched)
		if len(due) == 0 {
			continue
		}
		for _, row := range due {
			if row.Status == amortization.StatusOverdue {
				stats.Overdue++
			} else {
				stats.Upcoming++
			}
		}

		client, err := r.loans.GetClient(ctx, loan.ClientID)
		if err != nil {
			entry.Warnf("Skipping reminders, client %d unavailable: %v", loan.ClientID, err)
			continue
		}
		if client.Email == "" {
			entry.Debugf("Client %d has no email address", client.ID)
			continue
		}

		for _, row := range due {
			if err := r.notifier.SendInstallmentReminder(client.Email, client.Name, loan.ID, row); err != nil {
				stats.Failed++
				entry.Errorf("Reminder for installment %d failed: %v", row.Period, err)
				continue
			}
			stats.Sent++
			kind := metrics.ReminderUpcoming
			if row.Status == amortization.StatusOverdue {
				kind = metrics.ReminderOverdue
			}
			metrics.IncReminderSent(kind)
		}
	}

	metrics.SetOverdueInstallments(stats.Overdue)
	r.log.WithFields(logrus.Fields{
		"loans":    stats.Loans,
		"overdue":  stats.Overdue,
		"upcoming": stats.Upcoming,
		"sent":     stats.Sent,
		"failed":   stats.Failed,
	}).Info("Reminder run finished")

	if stats.Failed > 0 && stats.Sent == 0 {
		return stats, errors.New("no reminder could be delivered")
	}
	return stats, nil
}

func (r *Reminder) dueRows(sched *models.LoanSchedule) []amortization.AnnotatedInstallment {
	horizon := sched.AsOf.AddDate(0, 0, r.lookahead)
	var due []amortization.AnnotatedInstallment
	for _, row := range sched.Rows {
		if !row.Pending.IsPositive() {
			continue
		}
		if row.Status == amortization.StatusOverdue {
			due = append(due, row)
			continue
		}
		// Rows still inside the grace window are reminded as upcoming.
		if !row.DueDate.After(horizon) {
			due = append(due, row)
		}
	}
	return due
}
