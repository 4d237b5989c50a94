package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidEmail indicates the supplied email cannot identify an account.
var ErrInvalidEmail = errors.New("users: invalid email")

// ErrNotFound indicates no account matches the identifier.
var ErrNotFound = errors.New("users: not found")

// ServiceConfig describes the dependencies required for account resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages customer accounts.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// ResolveByEmail returns the account with the normalized email, creating one
// when the address has not been seen before.
func (s *Service) ResolveByEmail(ctx context.Context, email string) (*Customer, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrInvalidEmail
	}

	var customer Customer
	err := s.db.WithContext(ctx).
		Where("email = ?", normalized).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		customer = Customer{
			ID:         id.String(),
			Email:      normalized,
			Role:       RoleCustomer,
			LastSeenAt: s.now(),
		}
		if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
			return nil, err
		}
		return &customer, nil
	}
	if err != nil {
		return nil, err
	}

	_ = s.db.WithContext(ctx).Model(&Customer{}).
		Where("id = ?", customer.ID).
		Update("last_seen_at", s.now()).Error

	return &customer, nil
}

// Get loads an account by id.
func (s *Service) Get(ctx context.Context, customerID string) (*Customer, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}
	var customer Customer
	err := s.db.WithContext(ctx).
		Where("id = ?", customerID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// EmailByID resolves an account's stored email, used by the quote service to
// verify guest ownership lookups against a linked customer.
func (s *Service) EmailByID(ctx context.Context, customerID string) (string, error) {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return "", err
	}
	return customer.Email, nil
}
