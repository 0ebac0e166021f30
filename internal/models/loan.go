package models

import (
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/shopspring/decimal"
)

// Loan represents a disbursed loan
type Loan struct {
	ID               int64           `json:"id"`
	ClientID         int64           `json:"client_id"`
	ClientName       string          `json:"client_name,omitempty"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"` // Percent, 12 = 12% per year
	TermMonths       int             `json:"term_months"`
	PaymentsPerYear  int             `json:"payments_per_year"`
	DisbursementDate time.Time       `json:"disbursement_date"`
	HMAC             string          `json:"hmac"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Terms returns the schedule inputs of the loan
func (l *Loan) Terms() amortization.LoanTerms {
	return amortization.LoanTerms{
		Principal:         l.Principal,
		AnnualRatePercent: l.AnnualRate,
		TermMonths:        l.TermMonths,
		PaymentsPerYear:   l.PaymentsPerYear,
		DisbursementDate:  l.DisbursementDate,
	}
}
