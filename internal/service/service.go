package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation wraps rejected request fields
	ErrValidation = errors.New("validation failed")
	// ErrLoanTampered is returned when stored loan terms no longer match their HMAC
	ErrLoanTampered = errors.New("loan terms do not match their signature")
)

// Store is the persistence the service depends on
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateClient(ctx context.Context, client *models.Client) error
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
	FindClientByID(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)

	CreateLoan(ctx context.Context, loan *models.Loan) error
	FindLoanByID(ctx context.Context, id int64) (*models.Loan, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	ListLoansByClient(ctx context.Context, clientID int64) ([]models.Loan, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListPaymentsByLoan(ctx context.Context, loanID int64) ([]models.Payment, error)
}

// RateSource suggests an annual interest rate, in percent
type RateSource interface {
	GetKeyRate(ctx context.Context) (decimal.Decimal, error)
}

// Service handles business logic
type Service struct {
	repo   Store
	log    *logrus.Logger
	config *config.Config
	rates  RateSource
	now    func() time.Time
}

// NewService initializes a new service
func NewService(repo Store, log *logrus.Logger, cfg *config.Config, rates RateSource) *Service {
	return &Service{repo: repo, log: log, config: cfg, rates: rates, now: time.Now}
}

// Register creates a new operator with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates an operator and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// ReferenceRate returns the central bank key rate plus the bank margin
func (s *Service) ReferenceRate(ctx context.Context) (decimal.Decimal, error) {
	if s.rates == nil {
		return decimal.Zero, fmt.Errorf("no reference rate source configured")
	}
	return s.rates.GetKeyRate(ctx)
}
