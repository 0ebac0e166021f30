package models

import "time"

// Client represents a borrower
type Client struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Identification string    `json:"identification"` // Encrypted at rest
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
