package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
)

// CreateClient stores a new borrower with the identification number encrypted
func (s *Service) CreateClient(ctx context.Context, client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}

	plain := client.Identification
	if err := s.sealIdentification(client); err != nil {
		return err
	}
	err := s.repo.CreateClient(ctx, client)
	client.Identification = plain
	if err != nil {
		return err
	}

	s.log.WithField("client_id", client.ID).Infof("Client created: %s", client.Name)
	return nil
}

// UpdateClient overwrites a borrower's details
func (s *Service) UpdateClient(ctx context.Context, client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}

	plain := client.Identification
	if err := s.sealIdentification(client); err != nil {
		return err
	}
	err := s.repo.UpdateClient(ctx, client)
	client.Identification = plain
	if err != nil {
		return err
	}

	s.log.WithField("client_id", client.ID).Info("Client updated")
	return nil
}

// DeleteClient removes a borrower with all of its loans and payments
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.log.WithField("client_id", id).Info("Client deleted with its loans and payments")
	return nil
}

// GetClient returns a borrower with the identification number decrypted
func (s *Service) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	client, err := s.repo.FindClientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.openIdentification(client); err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients returns all borrowers, newest first
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if err := s.openIdentification(&clients[i]); err != nil {
			return nil, err
		}
	}
	return clients, nil
}

func normalizeClient(client *models.Client) error {
	client.Name = strings.TrimSpace(client.Name)
	client.Identification = strings.TrimSpace(client.Identification)
	client.Address = strings.TrimSpace(client.Address)
	client.Phone = strings.TrimSpace(client.Phone)
	client.Email = strings.TrimSpace(client.Email)
	if client.Name == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if client.Email != "" && !strings.Contains(client.Email, "@") {
		return fmt.Errorf("%w: client email is malformed", ErrValidation)
	}
	return nil
}

func (s *Service) sealIdentification(client *models.Client) error {
	if client.Identification == "" {
		return nil
	}
	encrypted, err := utils.Encrypt(client.Identification, s.config.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt identification: %w", err)
	}
	client.Identification = encrypted
	return nil
}

func (s *Service) openIdentification(client *models.Client) error {
	if client.Identification == "" {
		return nil
	}
	plain, err := utils.Decrypt(client.Identification, s.config.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt identification of client %d: %w", client.ID, err)
	}
	client.Identification = plain
	return nil
}
