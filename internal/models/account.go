package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount is a connected bank account, keyed by account number plus
// institution code per owner. Balance is mutated only by payment
// reconciliation; the version column guards concurrent updates.
type BankAccount struct {
	AccountNumber string          `json:"account_number" db:"account_number"`
	FiCode        string          `json:"fi_code" db:"fi_code"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	DisplayName   string          `json:"display_name" db:"display_name"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
