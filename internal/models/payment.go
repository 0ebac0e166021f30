package models

import (
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/shopspring/decimal"
)

// Payment represents money received for a loan
type Payment struct {
	ID          int64           `json:"id"`
	LoanID      int64           `json:"loan_id"`
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EnginePayments converts stored payments for allocation
func EnginePayments(payments []Payment) []amortization.Payment {
	out := make([]amortization.Payment, len(payments))
	for i, p := range payments {
		out[i] = amortization.Payment{Amount: p.Amount, Date: p.PaymentDate}
	}
	return out
}
