package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/apperrors"
	"github.com/fintrack/backend/internal/audit"
	"github.com/fintrack/backend/internal/models"
)

// PaymentReconciler applies a payment to a debt as one atomic operation:
// the debt mutation, the linked "Debt Payment" transaction and the
// payment-channel account debit either all commit or none do.
type PaymentReconciler struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewPaymentReconciler(db *sql.DB) *PaymentReconciler {
	return &PaymentReconciler{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// PaymentResult carries the updated debt together with the transaction the
// payment produced.
type PaymentResult struct {
	Debt        *models.Debt        `json:"debt"`
	Transaction *models.Transaction `json:"transaction"`
}

// ApplyPayment reduces the debt balance by amount and records the linked
// ledger entry. The debt row is locked for the duration of the database
// transaction, so concurrent payments against the same debt serialize
// instead of losing updates. Payments are not idempotent: applying the same
// amount twice produces two transactions and two balance reductions.
func (s *PaymentReconciler) ApplyPayment(ctx context.Context, ownerID, debtID string, amount decimal.Decimal, when time.Time, note string) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewInvalidArgument("payment amount must be positive")
	}
	amount = amount.Round(2)
	if when.IsZero() {
		when = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := s.applyPaymentTx(tx, ownerID, debtID, amount, when, note)
	if err != nil {
		s.audit.LogError(debtID, ownerID, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(debtID, ownerID, err)
		return nil, apperrors.NewInternal(err)
	}

	s.audit.LogPayment(debtID, result.Transaction.TransactionID, ownerID,
		amount.String(), result.Debt.LoanBalance.String())
	return result, nil
}

func (s *PaymentReconciler) applyPaymentTx(tx *sql.Tx, ownerID, debtID string, amount decimal.Decimal, when time.Time, note string) (*PaymentResult, error) {
	debt, err := s.lockDebt(tx, debtID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("debt not found")
		}
		return nil, apperrors.NewInternal(err)
	}

	if debt.OwnerID != ownerID {
		return nil, apperrors.NewUnauthorized("you do not have permission to modify this debt")
	}

	if amount.GreaterThan(debt.LoanBalance) {
		return nil, apperrors.NewInvalidArgument("payment amount exceeds remaining loan balance")
	}

	// Balance is authoritative: subtract the payment directly and derive the
	// installment count from the paid ratio instead of trusting user input.
	newBalance := debt.LoanBalance.Sub(amount).Round(2)
	newInstallment := deriveInstallment(debt.LoanPrincipal, newBalance, debt.TotalInstallments)

	if err := s.updateDebt(tx, debtID, newInstallment, newBalance); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	if err := s.debitChannelAccount(tx, debt, amount); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		TransactionID: uuid.NewString(),
		OwnerID:       ownerID,
		DateTime:      when,
		Category:      models.CategoryExpense,
		Type:          models.TypeDebtPayment,
		Amount:        amount,
		Note:          note,
		DebtID:        &debtID,
		Sender: &models.AccountRef{
			AccountNumber: debt.AccountNumber,
			FiCode:        debt.FiCode,
		},
		CreatedAt: time.Now(),
	}

	if err := s.insertPaymentTransaction(tx, txn); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	debt.CurrentInstallment = newInstallment
	debt.LoanBalance = newBalance
	debt.UpdatedAt = time.Now()

	return &PaymentResult{Debt: debt, Transaction: txn}, nil
}

// deriveInstallment maps the paid fraction of the principal onto the
// installment schedule. A fully paid debt always lands on the final
// installment regardless of rounding.
func deriveInstallment(principal, balance decimal.Decimal, total int) int {
	if balance.IsZero() || !balance.IsPositive() {
		return total
	}
	paid := principal.Sub(balance)
	installment := int(paid.Mul(decimal.NewFromInt(int64(total))).Div(principal).IntPart())
	if installment > total {
		installment = total
	}
	if installment < 0 {
		installment = 0
	}
	return installment
}

func (s *PaymentReconciler) lockDebt(tx *sql.Tx, debtID string) (*models.Debt, error) {
	var debt models.Debt
	err := tx.QueryRow(`
		SELECT debt_id, owner_id, debt_name, loan_principal, total_installments,
		       current_installment, loan_balance, account_number, fi_code, created_at, updated_at
		FROM debts
		WHERE debt_id = $1
		FOR UPDATE`, debtID).Scan(
		&debt.DebtID, &debt.OwnerID, &debt.DebtName, &debt.LoanPrincipal,
		&debt.TotalInstallments, &debt.CurrentInstallment, &debt.LoanBalance,
		&debt.AccountNumber, &debt.FiCode, &debt.CreatedAt, &debt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (s *PaymentReconciler) updateDebt(tx *sql.Tx, debtID string, installment int, balance decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE debts
		SET current_installment = $1, loan_balance = $2, updated_at = $3
		WHERE debt_id = $4`,
		installment, balance, time.Now(), debtID)
	return err
}

// debitChannelAccount reduces the payment-channel bank account balance in
// the same database transaction. The debt row is always locked before the
// account row, keeping lock order consistent across concurrent payments.
func (s *PaymentReconciler) debitChannelAccount(tx *sql.Tx, debt *models.Debt, amount decimal.Decimal) error {
	var balance decimal.Decimal
	var version int
	err := tx.QueryRow(`
		SELECT balance, version
		FROM bank_accounts
		WHERE account_number = $1 AND fi_code = $2 AND owner_id = $3
		FOR UPDATE`,
		debt.AccountNumber, debt.FiCode, debt.OwnerID).Scan(&balance, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperrors.NewNotFound("payment channel account not found")
		}
		return apperrors.NewInternal(err)
	}

	if balance.LessThan(amount) {
		return apperrors.NewInvalidArgument("insufficient balance on payment channel account")
	}

	result, err := tx.Exec(`
		UPDATE bank_accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE account_number = $3 AND fi_code = $4 AND owner_id = $5 AND version = $6`,
		balance.Sub(amount).Round(2), time.Now(),
		debt.AccountNumber, debt.FiCode, debt.OwnerID, version)
	if err != nil {
		return apperrors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return apperrors.Wrap(apperrors.Internal, "internal error",
			fmt.Errorf("optimistic lock failed for account %s/%s", debt.AccountNumber, debt.FiCode))
	}

	return nil
}

func (s *PaymentReconciler) insertPaymentTransaction(tx *sql.Tx, txn *models.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions
		(transaction_id, owner_id, transaction_datetime, category, type, amount, note,
		 debt_id, sender_account_number, sender_fi_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		txn.TransactionID, txn.OwnerID, txn.DateTime, txn.Category, txn.Type,
		txn.Amount, txn.Note, txn.DebtID, txn.Sender.AccountNumber, txn.Sender.FiCode,
		txn.CreatedAt)
	return err
}
