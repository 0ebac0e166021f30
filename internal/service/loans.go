package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/metrics"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Column limits of loans.principal NUMERIC(14,2) and loans.annual_rate NUMERIC(8,4)
var (
	maxPrincipal  = decimal.New(1, 12)
	maxAnnualRate = decimal.New(1, 4)
)

const annualRatePlaces = 4

// CreateLoan validates the terms, signs them and stores the loan
func (s *Service) CreateLoan(ctx context.Context, loan *models.Loan) error {
	loan.Principal = loan.Principal.Round(2)
	loan.AnnualRate = loan.AnnualRate.Round(annualRatePlaces)
	loan.DisbursementDate = civilDate(loan.DisbursementDate)
	if err := amortization.ValidateWithOptions(loan.Terms(), s.scheduleOptions()); err != nil {
		return err
	}
	if loan.Principal.GreaterThanOrEqual(maxPrincipal) {
		return &amortization.InvalidInputError{Field: "principal", Reason: "must be less than " + maxPrincipal.String()}
	}
	if loan.AnnualRate.GreaterThanOrEqual(maxAnnualRate) {
		return &amortization.InvalidInputError{Field: "annual_rate_percent", Reason: "must be less than " + maxAnnualRate.String()}
	}

	client, err := s.repo.FindClientByID(ctx, loan.ClientID)
	if err != nil {
		return err
	}
	loan.ClientName = client.Name
	loan.HMAC = utils.SignLoan(loan, s.config.HMACSecret)

	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"client_id": loan.ClientID,
	}).Infof("Loan created: %s at %s%% for %d months", loan.Principal.StringFixed(2), loan.AnnualRate.String(), loan.TermMonths)
	return nil
}

// GetLoan returns a loan by id
func (s *Service) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	return s.repo.FindLoanByID(ctx, id)
}

// ListLoans returns all loans, newest first
func (s *Service) ListLoans(ctx context.Context) ([]models.Loan, error) {
	return s.repo.ListLoans(ctx)
}

// ListClientLoans returns the loans of one borrower
func (s *Service) ListClientLoans(ctx context.Context, clientID int64) ([]models.Loan, error) {
	if _, err := s.repo.FindClientByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListLoansByClient(ctx, clientID)
}

// RecordPayment stores money received for a loan
func (s *Service) RecordPayment(ctx context.Context, payment *models.Payment) error {
	if !payment.Amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if payment.PaymentDate.IsZero() {
		return fmt.Errorf("%w: payment date is required", ErrValidation)
	}
	payment.Amount = payment.Amount.Round(2)
	payment.PaymentDate = civilDate(payment.PaymentDate)

	if _, err := s.repo.FindLoanByID(ctx, payment.LoanID); err != nil {
		return err
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return err
	}
	metrics.IncPaymentsRecorded()

	s.log.WithField("loan_id", payment.LoanID).Infof("Payment recorded: %s on %s",
		payment.Amount.StringFixed(2), payment.PaymentDate.Format("2006-01-02"))
	return nil
}

// ListPayments returns a loan's payments in chronological order
func (s *Service) ListPayments(ctx context.Context, loanID int64) ([]models.Payment, error) {
	if _, err := s.repo.FindLoanByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentsByLoan(ctx, loanID)
}

// LoanSchedule computes the annotated amortization table of a stored loan as of today
func (s *Service) LoanSchedule(ctx context.Context, loanID int64) (sched *models.LoanSchedule, err error) {
	started := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveSchedule(result, started)
	}()

	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return s.buildSchedule(loan, payments)
}

// PreviewRequest carries unsaved loan terms and payments
type PreviewRequest struct {
	Terms     amortization.LoanTerms
	Payments  []amortization.Payment
	AsOf      *time.Time
	GraceDays *int
}

// Preview computes a schedule without touching storage. AsOf and GraceDays
// default to today and the configured grace window.
func (s *Service) Preview(req PreviewRequest) (*models.LoanSchedule, error) {
	for _, p := range req.Payments {
		if p.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: payment amounts must not be negative", ErrValidation)
		}
	}
	asOf := s.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	grace := s.config.GraceDays
	if req.GraceDays != nil {
		if *req.GraceDays < 0 {
			return nil, fmt.Errorf("%w: grace days must not be negative", ErrValidation)
		}
		grace = *req.GraceDays
	}

	schedule, err := amortization.GenerateWithOptions(req.Terms, s.scheduleOptions())
	if err != nil {
		return nil, err
	}
	rows := amortization.Allocate(schedule, req.Payments, asOf, grace)
	return &models.LoanSchedule{
		Loan: &models.Loan{
			Principal:        req.Terms.Principal,
			AnnualRate:       req.Terms.AnnualRatePercent,
			TermMonths:       req.Terms.TermMonths,
			PaymentsPerYear:  req.Terms.PaymentsPerYear,
			DisbursementDate: req.Terms.DisbursementDate,
		},
		AsOf:      civilDate(asOf),
		GraceDays: grace,
		Rows:      rows,
		Summary:   amortization.Summarize(rows, req.Payments),
	}, nil
}

// Portfolio summarizes every loan as of today
func (s *Service) Portfolio(ctx context.Context) (*models.Portfolio, error) {
	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return nil, err
	}

	p := &models.Portfolio{
		Loans:            []models.PortfolioEntry{},
		TotalPrincipal:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalOverdue:     decimal.Zero,
	}
	for i := range loans {
		loan := &loans[i]
		payments, err := s.repo.ListPaymentsByLoan(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		sched, err := s.buildSchedule(loan, payments)
		if err != nil {
			s.log.WithField("loan_id", loan.ID).Warnf("Skipping loan in portfolio: %v", err)
			continue
		}

		entry := models.PortfolioEntry{
			LoanID:        loan.ID,
			ClientName:    loan.ClientName,
			Principal:     loan.Principal,
			Outstanding:   sched.Summary.TotalPending,
			Overdue:       sched.Summary.Overdue,
			OverdueAmount: sched.Summary.OverdueAmount,
		}
		p.Loans = append(p.Loans, entry)
		p.TotalPrincipal = p.TotalPrincipal.Add(entry.Principal)
		p.TotalOutstanding = p.TotalOutstanding.Add(entry.Outstanding)
		p.TotalOverdue = p.TotalOverdue.Add(entry.OverdueAmount)
		if entry.Overdue > 0 {
			p.LoansInArrears++
		}
	}
	return p, nil
}

func (s *Service) buildSchedule(loan *models.Loan, payments []models.Payment) (*models.LoanSchedule, error) {
	if !utils.VerifyLoan(loan, s.config.HMACSecret) {
		return nil, fmt.Errorf("loan %d: %w", loan.ID, ErrLoanTampered)
	}

	schedule, err := amortization.GenerateWithOptions(loan.Terms(), s.scheduleOptions())
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	enginePayments := models.EnginePayments(payments)
	rows := amortization.Allocate(schedule, enginePayments, asOf, s.config.GraceDays)
	return &models.LoanSchedule{
		Loan:      loan,
		AsOf:      civilDate(asOf),
		GraceDays: s.config.GraceDays,
		Rows:      rows,
		Summary:   amortization.Summarize(rows, enginePayments),
	}, nil
}

func (s *Service) scheduleOptions() amortization.Options {
	return amortization.Options{DueDates: s.config.DueDatePolicy}
}

func civilDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
