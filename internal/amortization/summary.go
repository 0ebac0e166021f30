package amortization

import "github.com/shopspring/decimal"

// Summary aggregates an annotated schedule for dashboards and reports.
type Summary struct {
	Installments   int                   `json:"installments"`
	TotalScheduled decimal.Decimal       `json:"total_scheduled"`
	TotalInterest  decimal.Decimal       `json:"total_interest"`
	TotalPaid      decimal.Decimal       `json:"total_paid"`
	TotalPending   decimal.Decimal       `json:"total_pending"`
	PaidInFull     int                   `json:"paid_in_full"`
	Overdue        int                   `json:"overdue"`
	OverdueAmount  decimal.Decimal       `json:"overdue_amount"`
	Overpayment    decimal.Decimal       `json:"overpayment"`
	NextDue        *AnnotatedInstallment `json:"next_due,omitempty"`
}

// Summarize totals rows produced by Allocate from the same payments.
// Overpayment is the part of the pool that no installment could absorb.
func Summarize(rows []AnnotatedInstallment, payments []Payment) Summary {
	sum := Summary{
		Installments:   len(rows),
		TotalScheduled: decimal.Zero,
		TotalInterest:  decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalPending:   decimal.Zero,
		OverdueAmount:  decimal.Zero,
		Overpayment:    decimal.Zero,
	}
	for i := range rows {
		row := rows[i]
		sum.TotalScheduled = sum.TotalScheduled.Add(row.ScheduledPayment)
		sum.TotalInterest = sum.TotalInterest.Add(row.Interest)
		sum.TotalPaid = sum.TotalPaid.Add(row.Paid)
		sum.TotalPending = sum.TotalPending.Add(row.Pending)
		if !row.Pending.IsPositive() {
			sum.PaidInFull++
			continue
		}
		if row.Status == StatusOverdue {
			sum.Overdue++
			sum.OverdueAmount = sum.OverdueAmount.Add(row.Pending)
		}
		if sum.NextDue == nil {
			sum.NextDue = &rows[i]
		}
	}
	if extra := Pool(payments).Sub(sum.TotalPaid); extra.IsPositive() {
		sum.Overpayment = extra
	}
	return sum
}
