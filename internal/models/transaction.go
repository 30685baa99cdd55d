package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction categories. Every ledger entry is exactly one of these.
const (
	CategoryIncome   = "Income"
	CategoryExpense  = "Expense"
	CategoryTransfer = "Transfer"
)

// TypeDebtPayment is forced onto any transaction that references a debt.
const TypeDebtPayment = "Debt Payment"

// AccountRef identifies a bank account by number plus institution code.
type AccountRef struct {
	AccountNumber string `json:"account_number" validate:"required,max=20"`
	FiCode        string `json:"fi_code" validate:"required,max=6"`
}

// Transaction is a single ledger entry. Sender/receiver presence follows the
// category: Expense sets sender, Income sets receiver, Transfer sets both.
type Transaction struct {
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	DateTime      time.Time       `json:"transaction_datetime" db:"transaction_datetime"`
	Category      string          `json:"category" db:"category"`
	Type          string          `json:"type" db:"type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Note          string          `json:"note,omitempty" db:"note"`
	DebtID        *string         `json:"debt_id,omitempty" db:"debt_id"`
	Sender        *AccountRef     `json:"sender,omitempty"`
	Receiver      *AccountRef     `json:"receiver,omitempty"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// MonthlySummaryRow is one month of aggregated income and expense.
type MonthlySummaryRow struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// TypeSummaryRow aggregates expenses of one type within a month.
type TypeSummaryRow struct {
	Type  string          `json:"type"`
	Total decimal.Decimal `json:"total"`
}
