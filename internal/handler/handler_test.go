package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(username, email, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(email, password)
	return args.String(0), args.Error(1)
}

func (m *mockService) ReferenceRate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockService) CreateClient(ctx context.Context, client *models.Client) error {
	return m.Called(client).Error(0)
}

func (m *mockService) UpdateClient(ctx context.Context, client *models.Client) error {
	return m.Called(client).Error(0)
}

func (m *mockService) DeleteClient(ctx context.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockService) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	args := m.Called(id)
	client, _ := args.Get(0).(*models.Client)
	return client, args.Error(1)
}

func (m *mockService) ListClients(ctx context.Context) ([]models.Client, error) {
	args := m.Called()
	clients, _ := args.Get(0).([]models.Client)
	return clients, args.Error(1)
}

func (m *mockService) ListClientLoans(ctx context.Context, clientID int64) ([]models.Loan, error) {
	args := m.Called(clientID)
	loans, _ := args.Get(0).([]models.Loan)
	return loans, args.Error(1)
}

func (m *mockService) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return m.Called(loan).Error(0)
}

func (m *mockService) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	args := m.Called(id)
	loan, _ := args.Get(0).(*models.Loan)
	return loan, args.Error(1)
}

func (m *mockService) ListLoans(ctx context.Context) ([]models.Loan, error) {
	args := m.Called()
	loans, _ := args.Get(0).([]models.Loan)
	return loans, args.Error(1)
}

func (m *mockService) RecordPayment(ctx context.Context, payment *models.Payment) error {
	return m.Called(payment).Error(0)
}

func (m *mockService) ListPayments(ctx context.Context, loanID int64) ([]models.Payment, error) {
	args := m.Called(loanID)
	payments, _ := args.Get(0).([]models.Payment)
	return payments, args.Error(1)
}

func (m *mockService) LoanSchedule(ctx context.Context, loanID int64) (*models.LoanSchedule, error) {
	args := m.Called(loanID)
	sched, _ := args.Get(0).(*models.LoanSchedule)
	return sched, args.Error(1)
}

func (m *mockService) Preview(req service.PreviewRequest) (*models.LoanSchedule, error) {
	args := m.Called(req)
	sched, _ := args.Get(0).(*models.LoanSchedule)
	return sched, args.Error(1)
}

func (m *mockService) Portfolio(ctx context.Context) (*models.Portfolio, error) {
	args := m.Called()
	p, _ := args.Get(0).(*models.Portfolio)
	return p, args.Error(1)
}

func passThrough(next http.Handler) http.Handler { return next }

func newRouter(svc LoanService, auth mux.MiddlewareFunc) *mux.Router {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := mux.NewRouter()
	NewHandler(svc, log).RegisterRoutes(r, auth)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func sampleSchedule(t *testing.T) *models.LoanSchedule {
	t.Helper()
	terms := amortization.LoanTerms{
		Principal:         decimal.NewFromInt(1200),
		AnnualRatePercent: decimal.NewFromInt(12),
		TermMonths:        12,
		PaymentsPerYear:   12,
		DisbursementDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	schedule, err := amortization.Generate(terms)
	require.NoError(t, err)
	asOf := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	rows := amortization.Allocate(schedule, nil, asOf, 3)
	return &models.LoanSchedule{
		Loan: &models.Loan{
			ID: 11, ClientName: "Ana", Principal: terms.Principal, AnnualRate: terms.AnnualRatePercent,
			TermMonths: 12, PaymentsPerYear: 12, DisbursementDate: terms.DisbursementDate,
		},
		AsOf:      asOf,
		GraceDays: 3,
		Rows:      rows,
		Summary:   amortization.Summarize(rows, nil),
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	svc := &mockService{}
	r := newRouter(svc, middleware.AuthMiddleware(&config.Config{JWTSecret: "secret"}))

	for _, path := range []string{"/loans", "/clients", "/portfolio", "/loans/1/schedule"} {
		resp := do(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
	svc.AssertNotCalled(t, "ListLoans")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockService{}
	svc.On("Login", "ana@example.com", "nope").Return("", service.ErrInvalidCredentials)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/login", `{"email":"ana@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegister(t *testing.T) {
	svc := &mockService{}
	svc.On("Register", "ana", "ana@example.com", "password1").
		Return(&models.User{ID: 1, Username: "ana", Email: "ana@example.com", PasswordHash: "hash"}, nil)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/register",
		`{"username":"ana","email":"ana@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.NotContains(t, resp.Body.String(), "hash")
}

func TestKeyRate(t *testing.T) {
	svc := &mockService{}
	svc.On("ReferenceRate").Return(decimal.RequireFromString("21.00"), nil).Once()
	r := newRouter(svc, passThrough)

	resp := do(t, r, http.MethodGet, "/key-rate", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"key_rate":"21"}`, resp.Body.String())

	svc.On("ReferenceRate").Return(decimal.Zero, errors.New("timeout")).Once()
	resp = do(t, r, http.MethodGet, "/key-rate", "")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestCreateLoan(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateLoan", mock.MatchedBy(func(l *models.Loan) bool {
		return l.ClientID == 7 && l.Principal.Equal(decimal.NewFromInt(1200)) &&
			l.DisbursementDate.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Loan).ID = 11
	})

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/loans",
		`{"client_id":7,"principal":"1200","annual_rate":12,"term_months":12,"payments_per_year":12,"disbursement_date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	var loan models.Loan
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loan))
	assert.Equal(t, int64(11), loan.ID)
	svc.AssertExpectations(t)
}

func TestCreateLoan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"invalid input", &amortization.InvalidInputError{Field: "principal", Reason: "must be positive"}, http.StatusBadRequest, "principal"},
		{"invalid term", &amortization.InvalidTermError{TermMonths: 1, PaymentsPerYear: 1}, http.StatusUnprocessableEntity, ""},
		{"unknown client", repository.ErrNotFound, http.StatusNotFound, ""},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("CreateLoan", mock.Anything).Return(tt.err)

			resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/loans",
				`{"client_id":7,"principal":"0","annual_rate":12,"term_months":12,"payments_per_year":12,"disbursement_date":"2024-01-01"}`)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.field, decodeError(t, resp).Field)
		})
	}
}

func TestCreateLoan_BadRequestBody(t *testing.T) {
	svc := &mockService{}
	r := newRouter(svc, passThrough)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/loans", `{"client_id":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/loans", `{"disbursement_date":"01/02/2024"}`).Code)
	svc.AssertNotCalled(t, "CreateLoan", mock.Anything)
}

func TestGetLoan_NotFound(t *testing.T) {
	svc := &mockService{}
	svc.On("GetLoan", int64(5)).Return(nil, repository.ErrNotFound)
	r := newRouter(svc, passThrough)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/loans/5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/loans/abc", "").Code)
}

func TestRecordPayment(t *testing.T) {
	svc := &mockService{}
	svc.On("RecordPayment", mock.MatchedBy(func(p *models.Payment) bool {
		return p.LoanID == 11 && p.Amount.Equal(decimal.RequireFromString("106.62")) &&
			p.PaymentDate.Equal(time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC))
	})).Return(nil)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/loans/11/payments",
		`{"amount":"106.62","payment_date":"2024-02-03"}`)
	assert.Equal(t, http.StatusCreated, resp.Code)
	svc.AssertExpectations(t)
}

func TestRecordPayment_Rejected(t *testing.T) {
	svc := &mockService{}
	svc.On("RecordPayment", mock.Anything).Return(service.ErrValidation)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/loans/11/payments",
		`{"amount":"-5","payment_date":"2024-02-03"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoanSchedule(t *testing.T) {
	svc := &mockService{}
	svc.On("LoanSchedule", int64(11)).Return(sampleSchedule(t), nil)

	resp := do(t, newRouter(svc, passThrough), http.MethodGet, "/loans/11/schedule", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Rows []struct {
			Period           int    `json:"period"`
			ScheduledPayment string `json:"scheduled_payment"`
			Status           string `json:"status"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Rows, 12)
	assert.Equal(t, "106.62", body.Rows[0].ScheduledPayment)
	assert.Equal(t, "overdue", body.Rows[0].Status)
}

func TestLoanSchedule_Tampered(t *testing.T) {
	svc := &mockService{}
	svc.On("LoanSchedule", int64(11)).Return(nil, service.ErrLoanTampered)

	resp := do(t, newRouter(svc, passThrough), http.MethodGet, "/loans/11/schedule", "")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestLoanScheduleXLSX(t *testing.T) {
	svc := &mockService{}
	svc.On("LoanSchedule", int64(11)).Return(sampleSchedule(t), nil)

	resp := do(t, newRouter(svc, passThrough), http.MethodGet, "/loans/11/schedule.xlsx", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "loan-11-schedule.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue("schedule", "C2")
	require.NoError(t, err)
	assert.Equal(t, "$106.62", value)
}

func TestPreviewSchedule(t *testing.T) {
	svc := &mockService{}
	asOf := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	svc.On("Preview", mock.MatchedBy(func(req service.PreviewRequest) bool {
		return req.Terms.TermMonths == 12 &&
			len(req.Payments) == 1 && req.Payments[0].Amount.Equal(decimal.NewFromInt(150)) &&
			req.AsOf != nil && req.AsOf.Equal(asOf) &&
			req.GraceDays != nil && *req.GraceDays == 0
	})).Return(sampleSchedule(t), nil)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/schedule/preview", `{
		"principal": "1200", "annual_rate": "12", "term_months": 12, "payments_per_year": 12,
		"disbursement_date": "2024-01-01",
		"payments": [{"amount": "150", "payment_date": "2024-02-01"}],
		"as_of": "2024-03-20", "grace_days": 0
	}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	svc.AssertExpectations(t)
}

func TestDeleteClient(t *testing.T) {
	svc := &mockService{}
	svc.On("DeleteClient", int64(7)).Return(nil)
	svc.On("DeleteClient", int64(8)).Return(repository.ErrNotFound)
	r := newRouter(svc, passThrough)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/clients/7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/clients/8", "").Code)
}

func TestCreateClient_Conflict(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateClient", mock.Anything).Return(repository.ErrConflict)

	resp := do(t, newRouter(svc, passThrough), http.MethodPost, "/clients", `{"name":"Ana"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
}
