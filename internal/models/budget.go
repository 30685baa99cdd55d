package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a per-owner monthly spending limit for one expense type.
// Spent is computed from transactions, never stored.
type Budget struct {
	OwnerID      string          `json:"owner_id" db:"owner_id"`
	ExpenseType  string          `json:"expense_type" db:"expense_type"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit" db:"monthly_limit"`
	Month        string          `json:"month" db:"month"`
	Spent        decimal.Decimal `json:"spent"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
