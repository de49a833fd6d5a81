package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps a stored or submitted role to a known Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ExpenseStatus is the review state of an expense.
type ExpenseStatus string

const (
	StatusPending  ExpenseStatus = "pendente"
	StatusApproved ExpenseStatus = "aprovado"
	StatusRejected ExpenseStatus = "rejeitado"
)

// Valid reports whether s is one of the review states an admin may set.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trip is an administrator-defined period against which expenses are filed.
type Trip struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expense represents a monetary claim by a user against a trip.
type Expense struct {
	ID          int64           `json:"id"`
	TripID      int64           `json:"trip_id"`
	UserID      int64           `json:"user_id"`
	UserName    string          `json:"user_name,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ExpenseStatus   `json:"status"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TripSummary is a trip with its aggregated, non-rejected expense total.
type TripSummary struct {
	Trip
	CreatorName string          `json:"creator_name,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
}

// UserTotal aggregates one user's non-rejected expenses within a trip.
type UserTotal struct {
	UserID   int64           `json:"user_id"`
	UserName string          `json:"user_name"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}
