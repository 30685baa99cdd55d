package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack/backend/internal/apperrors"
)

const (
	lockDebtQuery    = `(?s)SELECT debt_id, owner_id, debt_name, loan_principal, total_installments,.+FROM debts.+FOR UPDATE`
	lockAccountQuery = `(?s)SELECT balance, version.+FROM bank_accounts.+FOR UPDATE`
)

func debtRows(ownerID string, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"debt_id", "owner_id", "debt_name", "loan_principal", "total_installments",
		"current_installment", "loan_balance", "account_number", "fi_code", "created_at", "updated_at",
	}).AddRow("debt-1", ownerID, "Car Loan", "12000", 12, 0, balance, "1234567890", "004", time.Now(), time.Now())
}

func TestPaymentReconciler_ApplyPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPaymentReconciler(db)
	ctx := context.Background()

	t.Run("successful payment", func(t *testing.T) {
		amount := decimal.NewFromInt(1000)

		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("user-1", "12000"))

		mock.ExpectExec("UPDATE debts").
			WithArgs(1, decimal.NewFromInt(11000), sqlmock.AnyArg(), "debt-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(lockAccountQuery).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "version"}).AddRow("50000", 3))

		mock.ExpectExec("UPDATE bank_accounts").
			WithArgs(decimal.NewFromInt(49000), sqlmock.AnyArg(), "1234567890", "004", "user-1", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), "Expense", "Debt Payment",
				amount, "monthly payment", "debt-1", "1234567890", "004", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		result, err := service.ApplyPayment(ctx, "user-1", "debt-1", amount, time.Now(), "monthly payment")
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(11000).Equal(result.Debt.LoanBalance))
		assert.Equal(t, 1, result.Debt.CurrentInstallment)
		assert.Equal(t, "Expense", result.Transaction.Category)
		assert.Equal(t, "Debt Payment", result.Transaction.Type)
		assert.NotNil(t, result.Transaction.DebtID)
		assert.Equal(t, "debt-1", *result.Transaction.DebtID)
		assert.Equal(t, "1234567890", result.Transaction.Sender.AccountNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full payoff lands on final installment", func(t *testing.T) {
		amount := decimal.NewFromInt(12000)

		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("user-1", "12000"))

		mock.ExpectExec("UPDATE debts").
			WithArgs(12, decimal.Zero, sqlmock.AnyArg(), "debt-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(lockAccountQuery).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "version"}).AddRow("50000", 1))

		mock.ExpectExec("UPDATE bank_accounts").
			WithArgs(decimal.NewFromInt(38000), sqlmock.AnyArg(), "1234567890", "004", "user-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		result, err := service.ApplyPayment(ctx, "user-1", "debt-1", amount, time.Now(), "")
		assert.NoError(t, err)
		assert.True(t, result.Debt.LoanBalance.IsZero())
		assert.Equal(t, 12, result.Debt.CurrentInstallment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debt not found", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"debt_id"}))

		mock.ExpectRollback()

		_, err := service.ApplyPayment(ctx, "user-1", "missing", decimal.NewFromInt(100), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.NotFound, apperrors.From(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debt owned by someone else", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("other-user", "12000"))

		mock.ExpectRollback()

		_, err := service.ApplyPayment(ctx, "user-1", "debt-1", decimal.NewFromInt(100), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.Unauthorized, apperrors.From(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment exceeds remaining balance", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("user-1", "500"))

		mock.ExpectRollback()

		_, err := service.ApplyPayment(ctx, "user-1", "debt-1", decimal.NewFromInt(1000), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.InvalidArgument, apperrors.From(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance on channel account", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("user-1", "12000"))

		mock.ExpectExec("UPDATE debts").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(lockAccountQuery).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "version"}).AddRow("200", 1))

		mock.ExpectRollback()

		_, err := service.ApplyPayment(ctx, "user-1", "debt-1", decimal.NewFromInt(1000), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.InvalidArgument, apperrors.From(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockDebtQuery).
			WithArgs("debt-1").
			WillReturnRows(debtRows("user-1", "12000"))

		mock.ExpectExec("UPDATE debts").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(lockAccountQuery).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "version"}).AddRow("50000", 1))

		mock.ExpectExec("UPDATE bank_accounts").
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		_, err := service.ApplyPayment(ctx, "user-1", "debt-1", decimal.NewFromInt(1000), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.Internal, apperrors.From(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount rejected before touching the database", func(t *testing.T) {
		_, err := service.ApplyPayment(ctx, "user-1", "debt-1", decimal.Zero, time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.InvalidArgument, apperrors.From(err).Code)

		_, err = service.ApplyPayment(ctx, "user-1", "debt-1", decimal.NewFromInt(-5), time.Time{}, "")
		assert.Error(t, err)
		assert.Equal(t, apperrors.InvalidArgument, apperrors.From(err).Code)
	})
}

func TestDeriveInstallment(t *testing.T) {
	principal := decimal.NewFromInt(12000)

	t.Run("proportional to paid fraction", func(t *testing.T) {
		assert.Equal(t, 1, deriveInstallment(principal, decimal.NewFromInt(11000), 12))
		assert.Equal(t, 6, deriveInstallment(principal, decimal.NewFromInt(6000), 12))
		assert.Equal(t, 11, deriveInstallment(principal, decimal.NewFromInt(1000), 12))
	})

	t.Run("partial installments round down", func(t *testing.T) {
		// 500 paid of 12000 is under one full installment
		assert.Equal(t, 0, deriveInstallment(principal, decimal.NewFromInt(11500), 12))
	})

	t.Run("zero balance is always the final installment", func(t *testing.T) {
		assert.Equal(t, 12, deriveInstallment(principal, decimal.Zero, 12))
	})
}
