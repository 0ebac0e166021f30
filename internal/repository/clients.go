package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-service/internal/models"
)

const clientColumns = `id, name, identification, address, phone, email, created_at, updated_at`

// CreateClient creates a new client; names are unique
func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO loans.clients (name, identification, address, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		client.Name, client.Identification, client.Address, client.Phone, client.Email).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("client %q: %w", client.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// UpdateClient overwrites the client's contact details
func (r *Repository) UpdateClient(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE loans.clients
		SET name = $1, identification = $2, address = $3, phone = $4, email = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		client.Name, client.Identification, client.Address, client.Phone, client.Email, client.ID).
		Scan(&client.CreatedAt, &client.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("client %d: %w", client.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// DeleteClient removes a client together with its loans and their payments
func (r *Repository) DeleteClient(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM loans.payments WHERE loan_id IN (SELECT id FROM loans.loans WHERE client_id = $1)`, id); err != nil {
		return fmt.Errorf("failed to delete client payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans.loans WHERE client_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete client loans: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM loans.clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("client %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client deletion: %w", err)
	}
	return nil
}

// FindClientByID retrieves a client
func (r *Repository) FindClientByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM loans.clients WHERE id = $1`
	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return client, nil
}

// ListClients returns all clients, newest first
func (r *Repository) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM loans.clients ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *client)
	}
	return clients, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	err := row.Scan(&c.ID, &c.Name, &c.Identification, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
