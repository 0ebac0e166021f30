package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-service/internal/models"
)

// CreatePayment records a payment for a loan
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO loans.payments (loan_id, payment_date, amount, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, payment.LoanID, payment.PaymentDate, payment.Amount).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// ListPaymentsByLoan returns a loan's payments in chronological order
func (r *Repository) ListPaymentsByLoan(ctx context.Context, loanID int64) ([]models.Payment, error) {
	query := `
		SELECT id, loan_id, payment_date, amount, created_at
		FROM loans.payments
		WHERE loan_id = $1
		ORDER BY payment_date, id`
	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.PaymentDate, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
