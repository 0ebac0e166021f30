package models

import (
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
)

// LoanSchedule is the computed amortization table of a loan as of a day.
// It is rebuilt on every request and never stored.
type LoanSchedule struct {
	Loan      *Loan                               `json:"loan"`
	AsOf      time.Time                           `json:"as_of"`
	GraceDays int                                 `json:"grace_days"`
	Rows      []amortization.AnnotatedInstallment `json:"rows"`
	Summary   amortization.Summary                `json:"summary"`
}
