package handler

import (
	"fmt"
	"net/http"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/report"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/shopspring/decimal"
)

type loanRequest struct {
	ClientID         int64           `json:"client_id"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	TermMonths       int             `json:"term_months"`
	PaymentsPerYear  int             `json:"payments_per_year"`
	DisbursementDate string          `json:"disbursement_date"`
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
}

type previewRequest struct {
	Principal        decimal.Decimal  `json:"principal"`
	AnnualRate       decimal.Decimal  `json:"annual_rate"`
	TermMonths       int              `json:"term_months"`
	PaymentsPerYear  int              `json:"payments_per_year"`
	DisbursementDate string           `json:"disbursement_date"`
	Payments         []paymentRequest `json:"payments"`
	AsOf             string           `json:"as_of"`
	GraceDays        *int             `json:"grace_days"`
}

// CreateLoan handles POST /loans
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	disbursed, err := parseDate("disbursement_date", req.DisbursementDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loan := &models.Loan{
		ClientID:         req.ClientID,
		Principal:        req.Principal,
		AnnualRate:       req.AnnualRate,
		TermMonths:       req.TermMonths,
		PaymentsPerYear:  req.PaymentsPerYear,
		DisbursementDate: disbursed,
	}
	if err := h.svc.CreateLoan(r.Context(), loan); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// ListLoans handles GET /loans
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// GetLoan handles GET /loans/{id}
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loan, err := h.svc.GetLoan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// RecordPayment handles POST /loans/{id}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	paid, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment := &models.Payment{LoanID: id, Amount: req.Amount, PaymentDate: paid}
	if err := h.svc.RecordPayment(r.Context(), payment); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// ListPayments handles GET /loans/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payments, err := h.svc.ListPayments(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// LoanSchedule handles GET /loans/{id}/schedule
func (h *Handler) LoanSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sched, err := h.svc.LoanSchedule(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// LoanScheduleXLSX handles GET /loans/{id}/schedule.xlsx
func (h *Handler) LoanScheduleXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sched, err := h.svc.LoanSchedule(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := report.BuildScheduleXLSX(sched)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="loan-%d-schedule.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Portfolio handles GET /portfolio
func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Portfolio(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PreviewSchedule handles POST /schedule/preview: a schedule for unsaved terms
func (h *Handler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	disbursed, err := parseDate("disbursement_date", req.DisbursementDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	preview := service.PreviewRequest{
		Terms: amortization.LoanTerms{
			Principal:         req.Principal,
			AnnualRatePercent: req.AnnualRate,
			TermMonths:        req.TermMonths,
			PaymentsPerYear:   req.PaymentsPerYear,
			DisbursementDate:  disbursed,
		},
		Payments:  make([]amortization.Payment, 0, len(req.Payments)),
		GraceDays: req.GraceDays,
	}
	for _, p := range req.Payments {
		paid, err := parseDate("payment_date", p.PaymentDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		preview.Payments = append(preview.Payments, amortization.Payment{Amount: p.Amount, Date: paid})
	}
	if req.AsOf != "" {
		asOf, err := parseDate("as_of", req.AsOf)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		preview.AsOf = &asOf
	}

	sched, err := h.svc.Preview(preview)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}
