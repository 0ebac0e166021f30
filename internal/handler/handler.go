package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// LoanService is the business layer behind the HTTP API
type LoanService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ReferenceRate(ctx context.Context) (decimal.Decimal, error)

	CreateClient(ctx context.Context, client *models.Client) error
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	ListClientLoans(ctx context.Context, clientID int64) ([]models.Loan, error)

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id int64) (*models.Loan, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	RecordPayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context, loanID int64) ([]models.Payment, error)

	LoanSchedule(ctx context.Context, loanID int64) (*models.LoanSchedule, error)
	Preview(req service.PreviewRequest) (*models.LoanSchedule, error)
	Portfolio(ctx context.Context) (*models.Portfolio, error)
}

type Handler struct {
	svc LoanService
	log *logrus.Logger
}

func NewHandler(svc LoanService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the public routes on r and the rest behind auth
func (h *Handler) RegisterRoutes(r *mux.Router, auth mux.MiddlewareFunc) {
	// Public routes
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(auth)
	api.HandleFunc("/clients", h.ListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients/{id:[0-9]+}", h.GetClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id:[0-9]+}", h.UpdateClient).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id:[0-9]+}", h.DeleteClient).Methods(http.MethodDelete)
	api.HandleFunc("/clients/{id:[0-9]+}/loans", h.ListClientLoans).Methods(http.MethodGet)

	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id:[0-9]+}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/payments", h.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/payments", h.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id:[0-9]+}/schedule", h.LoanSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/schedule.xlsx", h.LoanScheduleXLSX).Methods(http.MethodGet)

	api.HandleFunc("/portfolio", h.Portfolio).Methods(http.MethodGet)
	api.HandleFunc("/schedule/preview", h.PreviewSchedule).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps service and engine errors to HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *amortization.InvalidInputError
	var termErr *amortization.InvalidTermError

	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: inputErr.Field})
	case errors.As(err, &termErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrLoanTampered):
		h.log.WithField("path", r.URL.Path).Warn(err.Error())
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.WithField("path", r.URL.Path).Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", service.ErrValidation)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", service.ErrValidation)
	}
	return id, nil
}

// parseDate reads a YYYY-MM-DD field. An empty value yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", service.ErrValidation, field)
	}
	return t, nil
}
