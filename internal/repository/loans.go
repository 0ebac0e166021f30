package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-service/internal/models"
)

const loanSelect = `
		SELECT l.id, l.client_id, c.name, l.principal, l.annual_rate, l.term_months,
		       l.payments_per_year, l.disbursement_date, l.hmac, l.created_at, l.updated_at
		FROM loans.loans l
		JOIN loans.clients c ON c.id = l.client_id`

// CreateLoan stores a new loan
func (r *Repository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	query := `
		INSERT INTO loans.loans (client_id, principal, annual_rate, term_months, payments_per_year,
		                         disbursement_date, hmac, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		loan.ClientID, loan.Principal, loan.AnnualRate, loan.TermMonths, loan.PaymentsPerYear,
		loan.DisbursementDate, loan.HMAC).
		Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// FindLoanByID retrieves a loan with its client name
func (r *Repository) FindLoanByID(ctx context.Context, id int64) (*models.Loan, error) {
	loan, err := scanLoan(r.db.QueryRowContext(ctx, loanSelect+` WHERE l.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns all loans, newest first
func (r *Repository) ListLoans(ctx context.Context) ([]models.Loan, error) {
	return r.queryLoans(ctx, loanSelect+` ORDER BY l.id DESC`)
}

// ListLoansByClient returns the loans of one client, newest first
func (r *Repository) ListLoansByClient(ctx context.Context, clientID int64) ([]models.Loan, error) {
	return r.queryLoans(ctx, loanSelect+` WHERE l.client_id = $1 ORDER BY l.id DESC`, clientID)
}

func (r *Repository) queryLoans(ctx context.Context, query string, args ...interface{}) ([]models.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans := []models.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	l := &models.Loan{}
	err := row.Scan(&l.ID, &l.ClientID, &l.ClientName, &l.Principal, &l.AnnualRate, &l.TermMonths,
		&l.PaymentsPerYear, &l.DisbursementDate, &l.HMAC, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}
