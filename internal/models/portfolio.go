package models

import "github.com/shopspring/decimal"

// PortfolioEntry represents the standing of one loan
type PortfolioEntry struct {
	LoanID        int64           `json:"loan_id"`
	ClientName    string          `json:"client_name"`
	Principal     decimal.Decimal `json:"principal"`
	Outstanding   decimal.Decimal `json:"outstanding"` // Scheduled amount not yet covered by payments
	Overdue       int             `json:"overdue"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// Portfolio represents totals across all loans
type Portfolio struct {
	Loans            []PortfolioEntry `json:"loans"`
	TotalPrincipal   decimal.Decimal  `json:"total_principal"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	TotalOverdue     decimal.Decimal  `json:"total_overdue"`
	LoansInArrears   int              `json:"loans_in_arrears"`
}
