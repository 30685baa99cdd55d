package services

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
)

type BudgetService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewBudgetService(db *sql.DB) *BudgetService {
	return &BudgetService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type createBudgetRequest struct {
	ExpenseType  string          `json:"expense_type" validate:"required,max=20"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	Month        string          `json:"month"`
}

// CreateBudget sets a monthly spending limit for an expense type
// @Summary Create a budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param budget body createBudgetRequest true "Budget data"
// @Success 201 {object} models.Budget
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budgets [post]
func (bs *BudgetService) CreateBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req createBudgetRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := bs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !req.MonthlyLimit.IsPositive() {
		SendErrorResponse(w, "monthly_limit must be positive", http.StatusBadRequest, nil)
		return
	}

	month := req.Month
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		SendErrorResponse(w, "Invalid month format, expected YYYY-MM", http.StatusBadRequest, nil)
		return
	}

	budget := &models.Budget{
		OwnerID:      ownerID,
		ExpenseType:  req.ExpenseType,
		MonthlyLimit: req.MonthlyLimit.Round(2),
		Month:        month,
		Spent:        decimal.Zero,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	_, err := bs.db.Exec(`
		INSERT INTO budgets (owner_id, expense_type, monthly_limit, month, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		budget.OwnerID, budget.ExpenseType, budget.MonthlyLimit, budget.Month,
		budget.CreatedAt, budget.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			SendErrorResponse(w, "Budget already exists for this expense type and month", http.StatusConflict, nil)
			return
		}
		log.Printf("[BUDGET] Failed to create budget: %v", err)
		SendErrorResponse(w, "Failed to create budget", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[BUDGET] Created budget %s/%s for owner %s", budget.ExpenseType, budget.Month, ownerID)
	SendJSON(w, http.StatusCreated, budget)
}

// ListBudgets returns the user's budgets with spent amounts computed from
// the matching expense transactions.
// @Summary List budgets
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param month query string false "Filter by month (YYYY-MM)"
// @Success 200 {object} object{budgets=[]models.Budget,count=int}
// @Router /budgets [get]
func (bs *BudgetService) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	query := `
		SELECT b.owner_id, b.expense_type, b.monthly_limit, b.month,
		       COALESCE(SUM(t.amount), 0) AS spent,
		       b.created_at, b.updated_at
		FROM budgets b
		LEFT JOIN transactions t
		       ON t.owner_id = b.owner_id
		      AND t.category = 'Expense'
		      AND t.type = b.expense_type
		      AND to_char(t.transaction_datetime, 'YYYY-MM') = b.month
		WHERE b.owner_id = $1`
	args := []interface{}{ownerID}

	if month := r.URL.Query().Get("month"); month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			SendErrorResponse(w, "Invalid month format, expected YYYY-MM", http.StatusBadRequest, nil)
			return
		}
		query += " AND b.month = $2"
		args = append(args, month)
	}

	query += `
		GROUP BY b.owner_id, b.expense_type, b.monthly_limit, b.month, b.created_at, b.updated_at
		ORDER BY b.month DESC, b.expense_type`

	rows, err := bs.db.Query(query, args...)
	if err != nil {
		log.Printf("[BUDGET] Failed to list budgets: %v", err)
		SendErrorResponse(w, "Failed to fetch budgets", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.OwnerID, &b.ExpenseType, &b.MonthlyLimit, &b.Month,
			&b.Spent, &b.CreatedAt, &b.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch budgets", http.StatusInternalServerError, nil)
			return
		}
		budgets = append(budgets, b)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

type updateBudgetRequest struct {
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// UpdateBudget changes the monthly limit of an existing budget
// @Summary Update budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param expenseType path string true "Expense type"
// @Param month path string true "Month (YYYY-MM)"
// @Param budget body updateBudgetRequest true "New limit"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /budgets/{expenseType}/{month} [patch]
func (bs *BudgetService) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	expenseType := chi.URLParam(r, "expenseType")
	month := chi.URLParam(r, "month")

	var req updateBudgetRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if !req.MonthlyLimit.IsPositive() {
		SendErrorResponse(w, "monthly_limit must be positive", http.StatusBadRequest, nil)
		return
	}

	result, err := bs.db.Exec(`
		UPDATE budgets
		SET monthly_limit = $1, updated_at = $2
		WHERE owner_id = $3 AND expense_type = $4 AND month = $5`,
		req.MonthlyLimit.Round(2), time.Now(), ownerID, expenseType, month)
	if err != nil {
		log.Printf("[BUDGET] Failed to update budget %s/%s: %v", expenseType, month, err)
		SendErrorResponse(w, "Failed to update budget", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Budget not found", http.StatusNotFound, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Budget updated successfully"})
}

// DeleteBudget removes a budget
// @Summary Delete budget
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param expenseType path string true "Expense type"
// @Param month path string true "Month (YYYY-MM)"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /budgets/{expenseType}/{month} [delete]
func (bs *BudgetService) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	expenseType := chi.URLParam(r, "expenseType")
	month := chi.URLParam(r, "month")

	result, err := bs.db.Exec(`
		DELETE FROM budgets
		WHERE owner_id = $1 AND expense_type = $2 AND month = $3`,
		ownerID, expenseType, month)
	if err != nil {
		log.Printf("[BUDGET] Failed to delete budget %s/%s: %v", expenseType, month, err)
		SendErrorResponse(w, "Failed to delete budget", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Budget not found", http.StatusNotFound, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Budget deleted successfully"})
}
