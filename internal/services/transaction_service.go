package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/audit"
	"github.com/fintrack/backend/internal/models"
)

const summaryCacheTTL = 60 * time.Second

// transactionTypes mirrors the category lists shown by the mobile client.
var transactionTypes = map[string][]string{
	models.CategoryExpense: {
		"Food", "Transport", "Travel", "Groceries", "House", "Cure", "Pet",
		"Education", "Clothes", "Cosmetics", "Accessories", "Insurance",
		"Hobby", "Utilities", "Vehicle", "Fee", "Business", "Game",
		"Debt Payment", "Other Expense",
	},
	models.CategoryIncome: {
		"Salary", "Bonus", "Extra Income", "Dividend", "Refund", "Gift",
		"Other Income",
	},
	models.CategoryTransfer: {
		"Transfer", "Payment",
	},
}

type TransactionService struct {
	db        *sql.DB
	redis     *redis.Client
	audit     *audit.Logger
	validator *ValidationHelper
}

func NewTransactionService(db *sql.DB, redisClient *redis.Client) *TransactionService {
	return &TransactionService{
		db:        db,
		redis:     redisClient,
		audit:     audit.NewLogger(),
		validator: NewValidationHelper(),
	}
}

type transactionRequest struct {
	Date     string             `json:"date" validate:"required"`
	Category string             `json:"category" validate:"required,oneof=Income Expense Transfer"`
	Type     string             `json:"type" validate:"required,max=20"`
	Amount   decimal.Decimal    `json:"amount"`
	Note     string             `json:"note" validate:"max=256"`
	DebtID   *string            `json:"debt_id"`
	Sender   *models.AccountRef `json:"sender"`
	Receiver *models.AccountRef `json:"receiver"`
}

// CreateTransaction records an income, expense or transfer entry
// @Summary Create a transaction
// @Description Record a financial movement against the user's bank accounts
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transaction body transactionRequest true "Transaction data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Router /transactions [post]
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req transactionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, errMsg := ts.buildTransaction(ownerID, &req)
	if errMsg != "" {
		SendErrorResponse(w, errMsg, http.StatusBadRequest, nil)
		return
	}

	// Debt-linked entries always get the reserved type, and the debt must
	// belong to the caller.
	if tx.DebtID != nil {
		var debtOwner string
		err := ts.db.QueryRow(`SELECT owner_id FROM debts WHERE debt_id = $1`, *tx.DebtID).Scan(&debtOwner)
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Referenced debt not found", http.StatusBadRequest, nil)
			return
		}
		if err != nil {
			SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
			return
		}
		if debtOwner != ownerID {
			SendErrorResponse(w, "Referenced debt does not belong to you", http.StatusUnauthorized, nil)
			return
		}
		tx.Type = models.TypeDebtPayment
	}

	if tx.Category == models.CategoryExpense || tx.Category == models.CategoryTransfer {
		if err := ts.checkSufficientBalance(ownerID, tx.Sender, tx.Amount); err != nil {
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
	}
	if tx.Category == models.CategoryIncome || tx.Category == models.CategoryTransfer {
		if err := ts.checkAccountOwned(ownerID, tx.Receiver); err != nil {
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
	}

	if err := ts.storeTransaction(tx); err != nil {
		log.Printf("[TRANSACTION] Failed to store transaction: %v", err)
		ts.audit.LogError("", ownerID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	ts.invalidateSummaries(r.Context(), ownerID, tx.DateTime)
	log.Printf("[TRANSACTION] Created %s transaction %s for owner %s", tx.Category, tx.TransactionID, ownerID)
	SendJSON(w, http.StatusCreated, tx)
}

// buildTransaction applies the category rules and returns a validation
// message instead of an error when the request shape is wrong.
func (ts *TransactionService) buildTransaction(ownerID string, req *transactionRequest) (*models.Transaction, string) {
	if !req.Amount.IsPositive() {
		return nil, "amount must be positive"
	}

	when, err := parsePaymentDate(req.Date)
	if err != nil {
		return nil, "Invalid date format"
	}

	switch req.Category {
	case models.CategoryExpense:
		if req.Sender == nil {
			return nil, "Expense transactions require a sender account"
		}
		if req.Receiver != nil {
			return nil, "Expense transactions must not carry a receiver account"
		}
	case models.CategoryIncome:
		if req.Receiver == nil {
			return nil, "Income transactions require a receiver account"
		}
		if req.Sender != nil {
			return nil, "Income transactions must not carry a sender account"
		}
	case models.CategoryTransfer:
		if req.Sender == nil || req.Receiver == nil {
			return nil, "Transfer transactions require both sender and receiver accounts"
		}
		if req.Sender.AccountNumber == req.Receiver.AccountNumber && req.Sender.FiCode == req.Receiver.FiCode {
			return nil, "Cannot transfer to the same account"
		}
	}

	return &models.Transaction{
		TransactionID: uuid.NewString(),
		OwnerID:       ownerID,
		DateTime:      when,
		Category:      req.Category,
		Type:          req.Type,
		Amount:        req.Amount.Round(2),
		Note:          req.Note,
		DebtID:        req.DebtID,
		Sender:        req.Sender,
		Receiver:      req.Receiver,
		CreatedAt:     time.Now(),
	}, ""
}

func (ts *TransactionService) checkSufficientBalance(ownerID string, sender *models.AccountRef, amount decimal.Decimal) error {
	var balance decimal.Decimal
	err := ts.db.QueryRow(`
		SELECT balance FROM bank_accounts
		WHERE account_number = $1 AND fi_code = $2 AND owner_id = $3`,
		sender.AccountNumber, sender.FiCode, ownerID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("sender account not found")
		}
		return fmt.Errorf("balance check failed")
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("insufficient balance on sender account")
	}
	return nil
}

func (ts *TransactionService) checkAccountOwned(ownerID string, ref *models.AccountRef) error {
	var owned bool
	err := ts.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM bank_accounts
			WHERE account_number = $1 AND fi_code = $2 AND owner_id = $3
		)`, ref.AccountNumber, ref.FiCode, ownerID).Scan(&owned)
	if err != nil {
		return fmt.Errorf("account check failed")
	}
	if !owned {
		return fmt.Errorf("receiver account not found")
	}
	return nil
}

func (ts *TransactionService) storeTransaction(tx *models.Transaction) error {
	var senderAccount, senderFi, receiverAccount, receiverFi sql.NullString
	if tx.Sender != nil {
		senderAccount = sql.NullString{String: tx.Sender.AccountNumber, Valid: true}
		senderFi = sql.NullString{String: tx.Sender.FiCode, Valid: true}
	}
	if tx.Receiver != nil {
		receiverAccount = sql.NullString{String: tx.Receiver.AccountNumber, Valid: true}
		receiverFi = sql.NullString{String: tx.Receiver.FiCode, Valid: true}
	}

	_, err := ts.db.Exec(`
		INSERT INTO transactions
		(transaction_id, owner_id, transaction_datetime, category, type, amount, note,
		 debt_id, sender_account_number, sender_fi_code, receiver_account_number, receiver_fi_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.TransactionID, tx.OwnerID, tx.DateTime, tx.Category, tx.Type, tx.Amount,
		tx.Note, tx.DebtID, senderAccount, senderFi, receiverAccount, receiverFi, tx.CreatedAt)
	return err
}

// GetTransaction retrieves a single transaction
// @Summary Get transaction by ID
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID := chi.URLParam(r, "transactionId")

	tx, err := ts.fetchTransaction(txID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if tx.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to view this transaction", http.StatusUnauthorized, nil)
		return
	}

	SendJSON(w, http.StatusOK, tx)
}

// ListTransactions retrieves the user's transactions with optional filters
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param category query string false "Filter by category (Income, Expense, Transfer)"
// @Param type query string false "Filter by type"
// @Param startDate query string false "Inclusive lower bound (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Inclusive upper bound"
// @Param accountNumber query string false "Filter by account (sender or receiver)"
// @Param fiCode query string false "Account filter bank code"
// @Param limit query int false "Max rows (default 50, max 200)"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Router /transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	q := r.URL.Query()

	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	argIndex := 2

	if category := q.Get("category"); category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, category)
		argIndex++
	}
	if txType := q.Get("type"); txType != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, txType)
		argIndex++
	}
	if startDate := q.Get("startDate"); startDate != "" {
		t, err := parseDateBound(startDate)
		if err != nil {
			SendErrorResponse(w, "Invalid startDate format", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("transaction_datetime >= $%d", argIndex))
		args = append(args, t)
		argIndex++
	}
	if endDate := q.Get("endDate"); endDate != "" {
		t, err := parseDateBound(endDate)
		if err != nil {
			SendErrorResponse(w, "Invalid endDate format", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("transaction_datetime < $%d", argIndex))
		args = append(args, t.AddDate(0, 0, 1))
		argIndex++
	}
	if accountNumber := q.Get("accountNumber"); accountNumber != "" {
		fiCode := q.Get("fiCode")
		conditions = append(conditions, fmt.Sprintf(
			"((sender_account_number = $%d AND sender_fi_code = $%d) OR (receiver_account_number = $%d AND receiver_fi_code = $%d))",
			argIndex, argIndex+1, argIndex, argIndex+1))
		args = append(args, accountNumber, fiCode)
		argIndex += 2
	}

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	query := `
		SELECT transaction_id, owner_id, transaction_datetime, category, type, amount,
		       COALESCE(note, ''), debt_id,
		       sender_account_number, sender_fi_code, receiver_account_number, receiver_fi_code, created_at
		FROM transactions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY transaction_datetime DESC` + fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := ts.db.Query(query, args...)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to list transactions: %v", err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, *tx)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

type updateTransactionRequest struct {
	Date   *string          `json:"date"`
	Type   *string          `json:"type" validate:"omitempty,max=20"`
	Amount *decimal.Decimal `json:"amount"`
	Note   *string          `json:"note" validate:"omitempty,max=256"`
}

// UpdateTransaction changes the mutable fields of a transaction. Category,
// accounts and debt linkage are fixed after creation.
// @Summary Update transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param transaction body updateTransactionRequest true "Fields to update"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [patch]
func (ts *TransactionService) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID := chi.URLParam(r, "transactionId")

	var req updateTransactionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := ts.fetchTransaction(txID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if tx.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to modify this transaction", http.StatusUnauthorized, nil)
		return
	}

	if tx.DebtID != nil && (req.Amount != nil || req.Type != nil) {
		SendErrorResponse(w, "Debt payment transactions can only change date and note", http.StatusBadRequest, nil)
		return
	}

	if req.Date != nil {
		when, err := parsePaymentDate(*req.Date)
		if err != nil {
			SendErrorResponse(w, "Invalid date format", http.StatusBadRequest, nil)
			return
		}
		tx.DateTime = when
	}
	if req.Type != nil {
		tx.Type = *req.Type
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			SendErrorResponse(w, "amount must be positive", http.StatusBadRequest, nil)
			return
		}
		tx.Amount = req.Amount.Round(2)
	}
	if req.Note != nil {
		tx.Note = *req.Note
	}

	_, err = ts.db.Exec(`
		UPDATE transactions
		SET transaction_datetime = $1, type = $2, amount = $3, note = $4
		WHERE transaction_id = $5`,
		tx.DateTime, tx.Type, tx.Amount, tx.Note, txID)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to update transaction %s: %v", txID, err)
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}

	ts.invalidateSummaries(r.Context(), ownerID, tx.DateTime)
	SendJSON(w, http.StatusOK, tx)
}

// DeleteTransaction removes a transaction. Debt payments cannot be deleted
// here since the debt balance would no longer reconcile.
// @Summary Delete transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [delete]
func (ts *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID := chi.URLParam(r, "transactionId")

	tx, err := ts.fetchTransaction(txID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if tx.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to delete this transaction", http.StatusUnauthorized, nil)
		return
	}

	if tx.DebtID != nil {
		SendErrorResponse(w, "Debt payment transactions cannot be deleted directly", http.StatusBadRequest, nil)
		return
	}

	if _, err := ts.db.Exec(`DELETE FROM transactions WHERE transaction_id = $1`, txID); err != nil {
		log.Printf("[TRANSACTION] Failed to delete transaction %s: %v", txID, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	ts.invalidateSummaries(r.Context(), ownerID, tx.DateTime)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

// MonthlySummary aggregates income and expense totals per month over the
// last twelve months, including months with no activity.
// @Summary Monthly income and expense summary
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{summary=[]models.MonthlySummaryRow}
// @Router /transactions/summary/monthly [get]
func (ts *TransactionService) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	cacheKey := "summary:monthly:" + ownerID
	if ts.redis != nil {
		if cached, err := ts.redis.Get(r.Context(), cacheKey).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}
	}

	rows, err := ts.db.Query(`
		SELECT to_char(m.month, 'YYYY-MM') AS month,
		       COALESCE(SUM(t.amount) FILTER (WHERE t.category = 'Income'), 0) AS income,
		       COALESCE(SUM(t.amount) FILTER (WHERE t.category = 'Expense'), 0) AS expense
		FROM generate_series(
		       date_trunc('month', NOW()) - INTERVAL '11 months',
		       date_trunc('month', NOW()),
		       INTERVAL '1 month') AS m(month)
		LEFT JOIN transactions t
		       ON date_trunc('month', t.transaction_datetime) = m.month
		      AND t.owner_id = $1
		GROUP BY m.month
		ORDER BY m.month`, ownerID)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to compute monthly summary: %v", err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	summary := []models.MonthlySummaryRow{}
	for rows.Next() {
		var row models.MonthlySummaryRow
		if err := rows.Scan(&row.Month, &row.Income, &row.Expense); err != nil {
			SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
			return
		}
		summary = append(summary, row)
	}

	payload, err := json.Marshal(map[string]any{"summary": summary})
	if err != nil {
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	if ts.redis != nil {
		if err := ts.redis.Set(r.Context(), cacheKey, payload, summaryCacheTTL).Err(); err != nil {
			log.Printf("[TRANSACTION] Failed to cache monthly summary: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// ExpensesByType breaks the current month's expenses down per type.
// @Summary Current month expenses grouped by type
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param month query string false "Month in YYYY-MM form (default: current month)"
// @Success 200 {object} object{month=string,expenses=[]models.TypeSummaryRow}
// @Router /transactions/summary/expenses [get]
func (ts *TransactionService) ExpensesByType(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		SendErrorResponse(w, "Invalid month format, expected YYYY-MM", http.StatusBadRequest, nil)
		return
	}

	cacheKey := "summary:types:" + ownerID + ":" + month
	if ts.redis != nil {
		if cached, err := ts.redis.Get(r.Context(), cacheKey).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}
	}

	rows, err := ts.db.Query(`
		SELECT type, COALESCE(SUM(amount), 0) AS total
		FROM transactions
		WHERE owner_id = $1
		  AND category = 'Expense'
		  AND to_char(transaction_datetime, 'YYYY-MM') = $2
		GROUP BY type
		ORDER BY total DESC`, ownerID, month)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to compute expense summary: %v", err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	expenses := []models.TypeSummaryRow{}
	for rows.Next() {
		var row models.TypeSummaryRow
		if err := rows.Scan(&row.Type, &row.Total); err != nil {
			SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
			return
		}
		expenses = append(expenses, row)
	}

	payload, err := json.Marshal(map[string]any{"month": month, "expenses": expenses})
	if err != nil {
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	if ts.redis != nil {
		if err := ts.redis.Set(r.Context(), cacheKey, payload, summaryCacheTTL).Err(); err != nil {
			log.Printf("[TRANSACTION] Failed to cache expense summary: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// GetTransactionTypes lists the known transaction types per category
// @Summary List transaction types
// @Tags transactions
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /transactions/types [get]
func (ts *TransactionService) GetTransactionTypes(w http.ResponseWriter, r *http.Request) {
	SendJSON(w, http.StatusOK, transactionTypes)
}

func (ts *TransactionService) invalidateSummaries(ctx context.Context, ownerID string, when time.Time) {
	if ts.redis == nil {
		return
	}
	keys := []string{
		"summary:monthly:" + ownerID,
		"summary:types:" + ownerID + ":" + when.Format("2006-01"),
	}
	if err := ts.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[TRANSACTION] Failed to invalidate summary cache for %s: %v", ownerID, err)
	}
}

func (ts *TransactionService) fetchTransaction(txID string) (*models.Transaction, error) {
	row := ts.db.QueryRow(`
		SELECT transaction_id, owner_id, transaction_datetime, category, type, amount,
		       COALESCE(note, ''), debt_id,
		       sender_account_number, sender_fi_code, receiver_account_number, receiver_fi_code, created_at
		FROM transactions
		WHERE transaction_id = $1`, txID)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var senderAccount, senderFi, receiverAccount, receiverFi sql.NullString
	err := row.Scan(&tx.TransactionID, &tx.OwnerID, &tx.DateTime, &tx.Category,
		&tx.Type, &tx.Amount, &tx.Note, &tx.DebtID,
		&senderAccount, &senderFi, &receiverAccount, &receiverFi, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	if senderAccount.Valid {
		tx.Sender = &models.AccountRef{AccountNumber: senderAccount.String, FiCode: senderFi.String}
	}
	if receiverAccount.Valid {
		tx.Receiver = &models.AccountRef{AccountNumber: receiverAccount.String, FiCode: receiverFi.String}
	}
	return &tx, nil
}

func parseDateBound(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
