package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt is a tracked loan obligation. Principal and the installment count are
// fixed at creation; balance and current installment change only through
// payment application.
type Debt struct {
	DebtID             string          `json:"debt_id" db:"debt_id"`
	OwnerID            string          `json:"owner_id" db:"owner_id"`
	DebtName           string          `json:"debt_name" db:"debt_name"`
	LoanPrincipal      decimal.Decimal `json:"loan_principal" db:"loan_principal"`
	TotalInstallments  int             `json:"total_installments" db:"total_installments"`
	CurrentInstallment int             `json:"current_installment" db:"current_installment"`
	LoanBalance        decimal.Decimal `json:"loan_balance" db:"loan_balance"`
	AccountNumber      string          `json:"account_number" db:"account_number"`
	FiCode             string          `json:"fi_code" db:"fi_code"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining reports whether the debt still carries a balance.
func (d *Debt) Remaining() bool {
	return d.LoanBalance.IsPositive()
}
