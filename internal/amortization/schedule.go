// Package amortization builds fixed-payment loan schedules and overlays a
// payment history onto them. Everything here is pure: no storage, no clock,
// no logging.
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// moneyPlaces is the precision every currency amount is rounded to.
	moneyPlaces = 2
	// growthPlaces bounds the precision of (1+r)^n while it is accumulated.
	growthPlaces = 24
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// DueDatePolicy selects how installment due dates advance from the
// disbursement date.
type DueDatePolicy int

const (
	// CalendarMonths steps 12/paymentsPerYear calendar months per period,
	// clamping the day to the end of shorter months.
	CalendarMonths DueDatePolicy = iota
	// FixedDays365 steps floor(period*365/paymentsPerYear) days.
	FixedDays365
)

func (p DueDatePolicy) String() string {
	switch p {
	case FixedDays365:
		return "fixed_365"
	default:
		return "calendar_month"
	}
}

// ParseDueDatePolicy maps a configuration value to a DueDatePolicy.
func ParseDueDatePolicy(s string) (DueDatePolicy, bool) {
	switch s {
	case "", "calendar_month":
		return CalendarMonths, true
	case "fixed_365":
		return FixedDays365, true
	}
	return CalendarMonths, false
}

// Options tunes schedule generation. The zero value uses calendar months.
type Options struct {
	DueDates DueDatePolicy
}

// LoanTerms are the inputs of a schedule.
type LoanTerms struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	TermMonths        int             `json:"term_months"`
	PaymentsPerYear   int             `json:"payments_per_year"`
	DisbursementDate  time.Time       `json:"disbursement_date"`
}

// Installment is one row of the amortization table.
type Installment struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	ScheduledPayment decimal.Decimal `json:"scheduled_payment"`
	Interest         decimal.Decimal `json:"interest"`
	Principal        decimal.Decimal `json:"principal"`
	Balance          decimal.Decimal `json:"balance"`
}

// Schedule is the ordered installment table of one loan.
type Schedule []Installment

// TotalScheduled sums the scheduled payments.
func (s Schedule) TotalScheduled() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s {
		total = total.Add(inst.ScheduledPayment)
	}
	return total
}

// TotalInterest sums the interest portions.
func (s Schedule) TotalInterest() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s {
		total = total.Add(inst.Interest)
	}
	return total
}

// TotalPrincipal sums the principal portions.
func (s Schedule) TotalPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s {
		total = total.Add(inst.Principal)
	}
	return total
}

// MaxTermMonths and MaxPaymentsPerYear bound a schedule to at most
// MaxTermMonths*MaxPaymentsPerYear/12 installments.
const (
	MaxTermMonths      = 1200
	MaxPaymentsPerYear = 365
)

// TotalPayments returns the number of installments for a term and frequency.
func TotalPayments(termMonths, paymentsPerYear int) int {
	return int(int64(termMonths) * int64(paymentsPerYear) / 12)
}

// Validate checks loan terms for the default options.
func Validate(terms LoanTerms) error {
	return ValidateWithOptions(terms, Options{})
}

// ValidateWithOptions checks loan terms without computing anything.
func ValidateWithOptions(terms LoanTerms, opts Options) error {
	if !terms.Principal.IsPositive() {
		return &InvalidInputError{Field: "principal", Reason: "must be positive"}
	}
	if terms.AnnualRatePercent.IsNegative() {
		return &InvalidInputError{Field: "annual_rate_percent", Reason: "must not be negative"}
	}
	if terms.TermMonths <= 0 {
		return &InvalidInputError{Field: "term_months", Reason: "must be positive"}
	}
	if terms.TermMonths > MaxTermMonths {
		return &InvalidInputError{Field: "term_months", Reason: fmt.Sprintf("must not exceed %d", MaxTermMonths)}
	}
	if terms.PaymentsPerYear <= 0 {
		return &InvalidInputError{Field: "payments_per_year", Reason: "must be positive"}
	}
	if terms.PaymentsPerYear > MaxPaymentsPerYear {
		return &InvalidInputError{Field: "payments_per_year", Reason: fmt.Sprintf("must not exceed %d", MaxPaymentsPerYear)}
	}
	if opts.DueDates == CalendarMonths && 12%terms.PaymentsPerYear != 0 {
		return &InvalidInputError{
			Field:  "payments_per_year",
			Reason: fmt.Sprintf("must divide 12 for %s due dates, use %s for other frequencies", CalendarMonths, FixedDays365),
		}
	}
	if terms.DisbursementDate.IsZero() {
		return &InvalidInputError{Field: "disbursement_date", Reason: "is required"}
	}
	if TotalPayments(terms.TermMonths, terms.PaymentsPerYear) <= 0 {
		return &InvalidTermError{TermMonths: terms.TermMonths, PaymentsPerYear: terms.PaymentsPerYear}
	}
	return nil
}

// Generate builds the schedule with calendar-month due dates.
func Generate(terms LoanTerms) (Schedule, error) {
	return GenerateWithOptions(terms, Options{})
}

// GenerateWithOptions builds a fixed-payment ("French") amortization table.
// Amounts are rounded half away from zero to cents at every step and the
// rounded balance is carried into the next period, so each row satisfies
// interest+principal == payment and balance[i] == balance[i-1]-principal[i]
// (before clamping at zero).
func GenerateWithOptions(terms LoanTerms, opts Options) (Schedule, error) {
	if err := ValidateWithOptions(terms, opts); err != nil {
		return nil, err
	}

	n := TotalPayments(terms.TermMonths, terms.PaymentsPerYear)
	periodRate := terms.AnnualRatePercent.Div(hundred).Div(decimal.NewFromInt(int64(terms.PaymentsPerYear)))
	payment := levelPayment(terms.Principal, periodRate, n).Round(moneyPlaces)

	schedule := make(Schedule, 0, n)
	balance := terms.Principal.Round(moneyPlaces)
	for period := 1; period <= n; period++ {
		interest := balance.Mul(periodRate).Round(moneyPlaces)
		principal := payment.Sub(interest)
		balance = balance.Sub(principal)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		schedule = append(schedule, Installment{
			Period:           period,
			DueDate:          dueDate(terms.DisbursementDate, period, terms.PaymentsPerYear, opts.DueDates),
			ScheduledPayment: payment,
			Interest:         interest,
			Principal:        principal,
			Balance:          balance,
		})
	}
	return schedule, nil
}

// levelPayment is the annuity formula P*r/(1-(1+r)^-n), written as
// P*r*g/(g-1) with g=(1+r)^n. A zero rate degenerates to P/n.
func levelPayment(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n)))
	}
	growth := one
	base := one.Add(rate)
	for i := 0; i < n; i++ {
		growth = growth.Mul(base).Round(growthPlaces)
	}
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(one))
}

func dueDate(disbursed time.Time, period, paymentsPerYear int, policy DueDatePolicy) time.Time {
	start := dateOf(disbursed)
	if policy == FixedDays365 {
		return start.AddDate(0, 0, period*365/paymentsPerYear)
	}
	return addMonths(start, period*(12/paymentsPerYear))
}

// addMonths moves t by whole calendar months, clamping the day of month so
// that Jan 31 + 1 month lands on the last day of February.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// dateOf drops the time of day, keeping the location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
