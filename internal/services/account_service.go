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

const pqUniqueViolation = "23505"

type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type createAccountRequest struct {
	AccountNumber string          `json:"account_number" validate:"required,max=20"`
	FiCode        string          `json:"fi_code" validate:"required,max=6"`
	DisplayName   string          `json:"display_name" validate:"required,max=100"`
	Balance       decimal.Decimal `json:"balance"`
}

// CreateAccount registers a bank account for the requesting user
// @Summary Create a bank account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account body createAccountRequest true "Account data"
// @Success 201 {object} models.BankAccount
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /banks [post]
func (as *AccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req createAccountRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.Balance.IsNegative() {
		SendErrorResponse(w, "balance cannot be negative", http.StatusBadRequest, nil)
		return
	}

	var fiExists bool
	if err := as.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM financial_institutions WHERE fi_code = $1)`, req.FiCode).Scan(&fiExists); err != nil {
		SendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}
	if !fiExists {
		SendErrorResponse(w, "Unknown financial institution code", http.StatusBadRequest, nil)
		return
	}

	account := &models.BankAccount{
		AccountNumber: req.AccountNumber,
		FiCode:        req.FiCode,
		OwnerID:       ownerID,
		DisplayName:   req.DisplayName,
		Balance:       req.Balance.Round(2),
		Version:       1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	_, err := as.db.Exec(`
		INSERT INTO bank_accounts
		(account_number, fi_code, owner_id, display_name, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.AccountNumber, account.FiCode, account.OwnerID, account.DisplayName,
		account.Balance, account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			SendErrorResponse(w, "Account already exists", http.StatusConflict, nil)
			return
		}
		log.Printf("[ACCOUNT] Failed to create account: %v", err)
		SendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ACCOUNT] Created account %s/%s for owner %s", account.AccountNumber, account.FiCode, ownerID)
	SendJSON(w, http.StatusCreated, account)
}

// ListAccounts returns the user's bank accounts
// @Summary List bank accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{accounts=[]models.BankAccount,count=int}
// @Router /banks [get]
func (as *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := as.db.Query(`
		SELECT account_number, fi_code, owner_id, display_name, balance, version, created_at, updated_at
		FROM bank_accounts
		WHERE owner_id = $1
		ORDER BY created_at`, ownerID)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to list accounts: %v", err)
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	accounts := []models.BankAccount{}
	for rows.Next() {
		var a models.BankAccount
		if err := rows.Scan(&a.AccountNumber, &a.FiCode, &a.OwnerID, &a.DisplayName,
			&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
			return
		}
		accounts = append(accounts, a)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount retrieves one bank account by number and bank code
// @Summary Get bank account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountNumber path string true "Account number"
// @Param fiCode path string true "Financial institution code"
// @Success 200 {object} models.BankAccount
// @Failure 404 {object} ErrorResponse
// @Router /banks/{accountNumber}/{fiCode} [get]
func (as *AccountService) GetAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountNumber := chi.URLParam(r, "accountNumber")
	fiCode := chi.URLParam(r, "fiCode")

	account, err := as.fetchAccount(accountNumber, fiCode)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	if account.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to view this account", http.StatusUnauthorized, nil)
		return
	}

	SendJSON(w, http.StatusOK, account)
}

type updateAccountRequest struct {
	DisplayName *string          `json:"display_name" validate:"omitempty,max=100"`
	Balance     *decimal.Decimal `json:"balance"`
}

// UpdateAccount changes the display name or corrects the balance.
// Balance corrections bump the version like any other balance write.
// @Summary Update bank account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountNumber path string true "Account number"
// @Param fiCode path string true "Financial institution code"
// @Param account body updateAccountRequest true "Fields to update"
// @Success 200 {object} models.BankAccount
// @Failure 404 {object} ErrorResponse
// @Router /banks/{accountNumber}/{fiCode} [patch]
func (as *AccountService) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountNumber := chi.URLParam(r, "accountNumber")
	fiCode := chi.URLParam(r, "fiCode")

	var req updateAccountRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := as.fetchAccount(accountNumber, fiCode)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	if account.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to modify this account", http.StatusUnauthorized, nil)
		return
	}

	if req.DisplayName != nil {
		account.DisplayName = *req.DisplayName
	}
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			SendErrorResponse(w, "balance cannot be negative", http.StatusBadRequest, nil)
			return
		}
		account.Balance = req.Balance.Round(2)
	}
	account.UpdatedAt = time.Now()

	result, err := as.db.Exec(`
		UPDATE bank_accounts
		SET display_name = $1, balance = $2, version = version + 1, updated_at = $3
		WHERE account_number = $4 AND fi_code = $5 AND version = $6`,
		account.DisplayName, account.Balance, account.UpdatedAt,
		accountNumber, fiCode, account.Version)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to update account %s/%s: %v", accountNumber, fiCode, err)
		SendErrorResponse(w, "Failed to update account", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Account was modified concurrently, retry", http.StatusConflict, nil)
		return
	}
	account.Version++

	SendJSON(w, http.StatusOK, account)
}

// DeleteAccount removes a bank account. Transactions that referenced it
// keep their account snapshot fields.
// @Summary Delete bank account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountNumber path string true "Account number"
// @Param fiCode path string true "Financial institution code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /banks/{accountNumber}/{fiCode} [delete]
func (as *AccountService) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := r.Context().Value("userID").(string)
	if !ok || ownerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountNumber := chi.URLParam(r, "accountNumber")
	fiCode := chi.URLParam(r, "fiCode")

	account, err := as.fetchAccount(accountNumber, fiCode)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	if account.OwnerID != ownerID {
		SendErrorResponse(w, "You do not have permission to delete this account", http.StatusUnauthorized, nil)
		return
	}

	if _, err := as.db.Exec(`
		DELETE FROM bank_accounts
		WHERE account_number = $1 AND fi_code = $2`, accountNumber, fiCode); err != nil {
		log.Printf("[ACCOUNT] Failed to delete account %s/%s: %v", accountNumber, fiCode, err)
		SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ACCOUNT] Deleted account %s/%s for owner %s", accountNumber, fiCode, ownerID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (as *AccountService) fetchAccount(accountNumber, fiCode string) (*models.BankAccount, error) {
	var a models.BankAccount
	err := as.db.QueryRow(`
		SELECT account_number, fi_code, owner_id, display_name, balance, version, created_at, updated_at
		FROM bank_accounts
		WHERE account_number = $1 AND fi_code = $2`,
		accountNumber, fiCode).Scan(
		&a.AccountNumber, &a.FiCode, &a.OwnerID, &a.DisplayName,
		&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
