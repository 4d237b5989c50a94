package users

import (
	"strings"
	"time"
)

// Role separates staff from storefront customers.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Customer is a storefront account. Guests never get one; they are tracked by
// the email stored on their quotes.
type Customer struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	Email       string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;size:320;not null;default:''"`
	Role        Role      `gorm:"column:role;size:32;not null;default:'customer'"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;autoUpdateTime"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing customer accounts.
func (Customer) TableName() string {
	return "customers"
}

// NormalizeEmail lowercases and trims an email for storage and comparison.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
