package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack/backend/internal/models"
)

func TestTransactionService_CreateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	t.Run("expense with sender succeeds", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   250.50,
			"note":     "lunch",
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT balance FROM bank_accounts`).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("5000"))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))

		redisMock.ExpectDel("summary:monthly:user-1", "summary:types:user-1:2026-03").SetVal(2)

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var tx models.Transaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
		assert.Equal(t, "Expense", tx.Category)
		assert.Equal(t, "Food", tx.Type)
		assert.NotNil(t, tx.Sender)
		assert.Nil(t, tx.Receiver)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income with sender rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Income",
			"type":     "Salary",
			"amount":   30000,
			"receiver": map[string]string{"account_number": "1234567890", "fi_code": "004"},
			"sender":   map[string]string{"account_number": "9876543210", "fi_code": "014"},
		})

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("expense without sender rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   100,
		})

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("transfer to same account rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Transfer",
			"type":     "Transfer",
			"amount":   100,
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
			"receiver": map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("debt link forces debt payment type", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   1000,
			"debt_id":  "debt-1",
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT owner_id FROM debts`).
			WithArgs("debt-1").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("user-1"))

		mock.ExpectQuery(`SELECT balance FROM bank_accounts`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("5000"))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))

		redisMock.ExpectDel("summary:monthly:user-1", "summary:types:user-1:2026-03").SetVal(2)

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var tx models.Transaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
		assert.Equal(t, "Debt Payment", tx.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debt link owned by someone else rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   1000,
			"debt_id":  "debt-1",
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT owner_id FROM debts`).
			WithArgs("debt-1").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("other-user"))

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient sender balance rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   10000,
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT balance FROM bank_accounts`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("50"))

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income to owned receiver succeeds", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-25 09:00",
			"category": "Income",
			"type":     "Salary",
			"amount":   30000,
			"receiver": map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))

		redisMock.ExpectDel("summary:monthly:user-1", "summary:types:user-1:2026-03").SetVal(2)

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income to unknown receiver rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-25 09:00",
			"category": "Income",
			"type":     "Salary",
			"amount":   30000,
			"receiver": map[string]string{"account_number": "0000000000", "fi_code": "999"},
		})

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("0000000000", "999", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transfer to another user's receiver rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-25 09:00",
			"category": "Transfer",
			"type":     "Transfer",
			"amount":   500,
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
			"receiver": map[string]string{"account_number": "9876543210", "fi_code": "014"},
		})

		mock.ExpectQuery(`SELECT balance FROM bank_accounts`).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("5000"))

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("9876543210", "014", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_WithoutRedis(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)

	t.Run("create still commits", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"date":     "2026-03-15 14:30",
			"category": "Expense",
			"type":     "Food",
			"amount":   250.50,
			"sender":   map[string]string{"account_number": "1234567890", "fi_code": "004"},
		})

		mock.ExpectQuery(`SELECT balance FROM bank_accounts`).
			WithArgs("1234567890", "004", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("5000"))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))

		r := authedRequest("POST", "/transactions", body, "user-1", nil)
		w := httptest.NewRecorder()

		service.CreateTransaction(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("monthly summary served from the database", func(t *testing.T) {
		mock.ExpectQuery("generate_series").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"month", "income", "expense"}).
				AddRow("2026-03", "30000", "250.50"))

		r := authedRequest("GET", "/transactions/summary/monthly", nil, "user-1", nil)
		w := httptest.NewRecorder()

		service.MonthlySummary(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Summary []models.MonthlySummaryRow `json:"summary"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Summary, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_MonthlySummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	t.Run("cache miss computes and stores", func(t *testing.T) {
		redisMock.ExpectGet("summary:monthly:user-1").RedisNil()

		mock.ExpectQuery("generate_series").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"month", "income", "expense"}).
				AddRow("2026-02", "30000", "12500.50").
				AddRow("2026-03", "30000", "0"))

		redisMock.Regexp().ExpectSet("summary:monthly:user-1", `.+`, summaryCacheTTL).SetVal("OK")

		r := authedRequest("GET", "/transactions/summary/monthly", nil, "user-1", nil)
		w := httptest.NewRecorder()

		service.MonthlySummary(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Summary []models.MonthlySummaryRow `json:"summary"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Summary, 2)
		assert.Equal(t, "2026-02", resp.Summary[0].Month)
		assert.Equal(t, "12500.5", resp.Summary[0].Expense.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the database", func(t *testing.T) {
		cached := `{"summary":[{"month":"2026-03","income":"0","expense":"0"}]}`
		redisMock.ExpectGet("summary:monthly:user-1").SetVal(cached)

		r := authedRequest("GET", "/transactions/summary/monthly", nil, "user-1", nil)
		w := httptest.NewRecorder()

		service.MonthlySummary(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, cached, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_GetTransactionTypes(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	r := httptest.NewRequest("GET", "/transactions/types", nil)
	w := httptest.NewRecorder()

	service.GetTransactionTypes(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var types map[string][]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Contains(t, types["Expense"], "Debt Payment")
	assert.Contains(t, types["Income"], "Salary")
	assert.NotEmpty(t, types["Transfer"])
}
