package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
)

type DebtService struct {
	db         *sql.DB
	reconciler *PaymentReconciler
	validator  *ValidationHelper
}

func NewDebtService(db *sql.DB, reconciler *PaymentReconciler) *DebtService {
	return &DebtService{
		db:         db,
		reconciler: reconciler,
		validator:  NewValidationHelper(),
	}
}

type createDebtRequest struct {
	DebtName           string          `json:"debt_name" validate:"required,max=30"`
	LoanPrincipal      decimal.Decimal `json:"loan_principal"`
	TotalInstallments  int             `json:"total_installments" validate:"required,gt=0"`
	CurrentInstallment int             `json:"current_installment" validate:"gte=0"`
	AccountNumber      string          `json:"account_number" validate:"required,max=20"`
	FiCode             string          `json:"fi_code" validate:"required,max=6"`
}

type paymentRequest struct {
	Date          string          `json:"date"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	Detail        string          `json:"detail"`
}

// CreateDebt registers a new debt
// @Summary Create a debt
// @Description Register a loan with a fixed principal and installment schedule
// @Tags debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param debt body createDebtRequest true "Debt data"
// @Success 201 {object} models.Debt
// @Failure 400 {object} ErrorResponse
// @Router /debts [post]
func (s *DebtService) CreateDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req createDebtRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !req.LoanPrincipal.IsPositive() {
		SendErrorResponse(w, "loan_principal must be positive", http.StatusBadRequest, nil)
		return
	}

	if req.CurrentInstallment > req.TotalInstallments {
		SendErrorResponse(w, "current_installment cannot exceed total_installments", http.StatusBadRequest, nil)
		return
	}

	principal := req.LoanPrincipal.Round(2)
	balance := principal
	if req.CurrentInstallment > 0 {
		// Balance for a debt created mid-schedule follows the installment
		// ratio; afterwards payments subtract from the balance directly.
		ratio := decimal.NewFromInt(int64(req.TotalInstallments - req.CurrentInstallment)).
			Div(decimal.NewFromInt(int64(req.TotalInstallments)))
		balance = principal.Mul(ratio).Round(2)
	}

	debt := &models.Debt{
		DebtID:             uuid.NewString(),
		OwnerID:            ownerID,
		DebtName:           req.DebtName,
		LoanPrincipal:      principal,
		TotalInstallments:  req.TotalInstallments,
		CurrentInstallment: req.CurrentInstallment,
		LoanBalance:        balance,
		AccountNumber:      req.AccountNumber,
		FiCode:             req.FiCode,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO debts
		(debt_id, owner_id, debt_name, loan_principal, total_installments,
		 current_installment, loan_balance, account_number, fi_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		debt.DebtID, debt.OwnerID, debt.DebtName, debt.LoanPrincipal,
		debt.TotalInstallments, debt.CurrentInstallment, debt.LoanBalance,
		debt.AccountNumber, debt.FiCode, debt.CreatedAt, debt.UpdatedAt)
	if err != nil {
		log.Printf("[DEBT] Failed to create debt: %v", err)
		SendErrorResponse(w, "Failed to create debt", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[DEBT] Created debt %s for owner %s", debt.DebtID, ownerID)
	SendJSON(w, http.StatusCreated, debt)
}

// ListDebts returns all debts of the requesting user
// @Summary List debts
// @Tags debts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{debts=[]models.Debt,count=int}
// @Router /debts [get]
func (s *DebtService) ListDebts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT debt_id, owner_id, debt_name, loan_principal, total_installments,
		       current_installment, loan_balance, account_number, fi_code, created_at, updated_at
		FROM debts
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		log.Printf("[DEBT] Failed to list debts: %v", err)
		SendErrorResponse(w, "Failed to fetch debts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	debts := []models.Debt{}
	for rows.Next() {
		var d models.Debt
		if err := rows.Scan(&d.DebtID, &d.OwnerID, &d.DebtName, &d.LoanPrincipal,
			&d.TotalInstallments, &d.CurrentInstallment, &d.LoanBalance,
			&d.AccountNumber, &d.FiCode, &d.CreatedAt, &d.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch debts", http.StatusInternalServerError, nil)
			return
		}
		debts = append(debts, d)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"debts": debts,
		"count": len(debts),
	})
}

// GetDebt retrieves a single debt by ID
// @Summary Get debt by ID
// @Tags debts
// @Produce json
// @Security BearerAuth
// @Param debtId path string true "Debt ID"
// @Success 200 {object} models.Debt
// @Failure 404 {object} ErrorResponse
// @Router /debts/{debtId} [get]
func (s *DebtService) GetDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	debtID := chi.URLParam(r, "debtId")

	debt, err := s.fetchDebt(debtID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Debt not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch debt", http.StatusInternalServerError, nil)
		}
		return
	}

	if debt.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to view this debt", http.StatusUnauthorized, nil)
		return
	}

	SendJSON(w, http.StatusOK, debt)
}

type updateDebtRequest struct {
	DebtName      *string `json:"debt_name" validate:"omitempty,max=30"`
	AccountNumber *string `json:"account_number" validate:"omitempty,max=20"`
	FiCode        *string `json:"fi_code" validate:"omitempty,max=6"`
}

// UpdateDebt changes the mutable debt fields: name and payment channel.
// Principal, installment schedule and balance change only through payments.
// @Summary Update debt
// @Tags debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param debtId path string true "Debt ID"
// @Param debt body updateDebtRequest true "Fields to update"
// @Success 200 {object} models.Debt
// @Failure 404 {object} ErrorResponse
// @Router /debts/{debtId} [patch]
func (s *DebtService) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	debtID := chi.URLParam(r, "debtId")

	var req updateDebtRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	debt, err := s.fetchDebt(debtID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Debt not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch debt", http.StatusInternalServerError, nil)
		}
		return
	}

	if debt.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to modify this debt", http.StatusUnauthorized, nil)
		return
	}

	if req.DebtName != nil {
		debt.DebtName = *req.DebtName
	}
	if req.AccountNumber != nil {
		debt.AccountNumber = *req.AccountNumber
	}
	if req.FiCode != nil {
		debt.FiCode = *req.FiCode
	}
	debt.UpdatedAt = time.Now()

	_, err = s.db.Exec(`
		UPDATE debts
		SET debt_name = $1, account_number = $2, fi_code = $3, updated_at = $4
		WHERE debt_id = $5`,
		debt.DebtName, debt.AccountNumber, debt.FiCode, debt.UpdatedAt, debtID)
	if err != nil {
		log.Printf("[DEBT] Failed to update debt %s: %v", debtID, err)
		SendErrorResponse(w, "Failed to update debt", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, debt)
}

// DeleteDebt hard-deletes a debt. Linked transactions survive with their
// debt reference cleared, inside the same database transaction.
// @Summary Delete debt
// @Tags debts
// @Produce json
// @Security BearerAuth
// @Param debtId path string true "Debt ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /debts/{debtId} [delete]
func (s *DebtService) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	debtID := chi.URLParam(r, "debtId")

	debt, err := s.fetchDebt(debtID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Debt not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch debt", http.StatusInternalServerError, nil)
		}
		return
	}

	if debt.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to delete this debt", http.StatusUnauthorized, nil)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to delete debt", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE transactions SET debt_id = NULL WHERE debt_id = $1`, debtID); err != nil {
		log.Printf("[DEBT] Failed to clear transaction references for debt %s: %v", debtID, err)
		SendErrorResponse(w, "Failed to delete debt", http.StatusInternalServerError, nil)
		return
	}

	if _, err := tx.Exec(`DELETE FROM debts WHERE debt_id = $1`, debtID); err != nil {
		log.Printf("[DEBT] Failed to delete debt %s: %v", debtID, err)
		SendErrorResponse(w, "Failed to delete debt", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to delete debt", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[DEBT] Deleted debt %s for owner %s", debtID, ownerID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Debt deleted successfully"})
}

// ApplyPayment records a payment against a debt
// @Summary Apply a debt payment
// @Description Atomically reduce the debt balance, debit the payment channel account and create the linked transaction
// @Tags debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param debtId path string true "Debt ID"
// @Param payment body paymentRequest true "Payment data"
// @Success 200 {object} PaymentResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /debts/{debtId}/payment [put]
func (s *DebtService) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	debtID := chi.URLParam(r, "debtId")

	var req paymentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	when, err := parsePaymentDate(req.Date)
	if err != nil {
		SendErrorResponse(w, "Invalid date format", http.StatusBadRequest, nil)
		return
	}

	result, err := s.reconciler.ApplyPayment(r.Context(), ownerID, debtID, req.PaymentAmount, when, req.Detail)
	if err != nil {
		SendAppError(w, err)
		return
	}

	log.Printf("[DEBT] Payment of %s applied to debt %s, new balance %s",
		req.PaymentAmount.String(), debtID, result.Debt.LoanBalance.String())
	SendJSON(w, http.StatusOK, result)
}

// ListPayments returns the payment history of a debt
// @Summary List debt payments
// @Tags debts
// @Produce json
// @Security BearerAuth
// @Param debtId path string true "Debt ID"
// @Success 200 {object} object{payments=[]models.Transaction,count=int}
// @Failure 404 {object} ErrorResponse
// @Router /debts/{debtId}/payments [get]
func (s *DebtService) ListPayments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	debtID := chi.URLParam(r, "debtId")

	debt, err := s.fetchDebt(debtID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Debt not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch debt", http.StatusInternalServerError, nil)
		}
		return
	}

	if debt.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to view this debt", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT transaction_id, owner_id, transaction_datetime, category, type, amount,
		       COALESCE(note, ''), debt_id, sender_account_number, sender_fi_code, created_at
		FROM transactions
		WHERE debt_id = $1
		ORDER BY transaction_datetime DESC`, debtID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	payments := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var senderAccount, senderFi sql.NullString
		if err := rows.Scan(&t.TransactionID, &t.OwnerID, &t.DateTime, &t.Category,
			&t.Type, &t.Amount, &t.Note, &t.DebtID, &senderAccount, &senderFi, &t.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
			return
		}
		if senderAccount.Valid {
			t.Sender = &models.AccountRef{AccountNumber: senderAccount.String, FiCode: senderFi.String}
		}
		payments = append(payments, t)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"count":    len(payments),
	})
}

func (s *DebtService) fetchDebt(debtID string) (*models.Debt, error) {
	var d models.Debt
	err := s.db.QueryRow(`
		SELECT debt_id, owner_id, debt_name, loan_principal, total_installments,
		       current_installment, loan_balance, account_number, fi_code, created_at, updated_at
		FROM debts
		WHERE debt_id = $1`, debtID).Scan(
		&d.DebtID, &d.OwnerID, &d.DebtName, &d.LoanPrincipal,
		&d.TotalInstallments, &d.CurrentInstallment, &d.LoanBalance,
		&d.AccountNumber, &d.FiCode, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parsePaymentDate accepts RFC 3339 or the mobile client's "2006-01-02 15:04"
// form. An empty date means "now" (applied by the reconciler).
func parsePaymentDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04", raw)
}

// decodeJSONBody decodes a single JSON object, rejecting oversized bodies,
// unknown fields and trailing garbage. Returns false if a response was
// already written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	return true
}
