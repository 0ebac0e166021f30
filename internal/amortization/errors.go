package amortization

import "fmt"

// InvalidInputError reports malformed loan terms. It is returned before any
// schedule computation starts.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s %s", e.Field, e.Reason)
}

// InvalidTermError reports a term too short for the chosen payment frequency,
// i.e. one that resolves to zero installments.
type InvalidTermError struct {
	TermMonths      int
	PaymentsPerYear int
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("term of %d months yields no installments at %d payments per year", e.TermMonths, e.PaymentsPerYear)
}
