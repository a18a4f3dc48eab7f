package portfolio

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/auth"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/account"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/asset"
	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/history"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/ledger"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/rebalance"
	transactions "github.com/sebuszqo/PortfolioTracker/internal/portfolio/transaction"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/valuation"
)

type PortfolioHandler struct {
	accountService     account.Service
	assetService       asset.Service
	ledgerService      ledger.Service
	transactionService transactions.Service
	valuationService   valuation.Service
	historyService     history.Service
	rebalanceService   rebalance.Service
	respondJSON        func(w http.ResponseWriter, status int, payload interface{})
	respondError       func(w http.ResponseWriter, status int, message string)
}

func NewPortfolioHandler(
	accountService account.Service,
	assetService asset.Service,
	ledgerService ledger.Service,
	transactionService transactions.Service,
	valuationService valuation.Service,
	historyService history.Service,
	rebalanceService rebalance.Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string),
) *PortfolioHandler {
	if respondJSON == nil || respondError == nil {
		log.Fatal("respond helpers must not be nil")
		return nil
	}
	return &PortfolioHandler{
		accountService:     accountService,
		assetService:       assetService,
		ledgerService:      ledgerService,
		transactionService: transactionService,
		valuationService:   valuationService,
		historyService:     historyService,
		rebalanceService:   rebalanceService,
		respondJSON:        respondJSON,
		respondError:       respondError,
	}
}

func (h *PortfolioHandler) getUserIDReq(w http.ResponseWriter, r *http.Request) string {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return ""
	}
	return userID
}

// handleServiceError maps the error taxonomy onto HTTP statuses:
// validation errors are 400 with the violated constraint, missing or
// foreign resources are 404, everything else (including ledger integrity
// errors) is logged and surfaced as a bare 500.
func (h *PortfolioHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case portfolioErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, asset.ErrAssetNotFound),
		errors.Is(err, transactions.ErrTransactionNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// ACCOUNTS

type createAccountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (h *PortfolioHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newAccount, err := h.accountService.CreateAccount(r.Context(), userID, req.Name, req.Type, req.Currency)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data":   newAccount,
	})
}

func (h *PortfolioHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	balances, err := h.valuationService.AccountsWithBalance(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, balances)
}

func (h *PortfolioHandler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	balance, err := h.valuationService.AccountBalance(r.Context(), userID, accountID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, balance)
}

func (h *PortfolioHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	if err := h.accountService.DeactivateAccount(r.Context(), userID, accountID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Account deactivated.",
	})
}

// ALLOCATION

func (h *PortfolioHandler) GetGlobalAllocation(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}
	groupBy, err := valuation.ParseGroupBy(r.PathValue("groupBy"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	groups, err := h.valuationService.Allocation(r.Context(), userID, groupBy)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, groups)
}

func (h *PortfolioHandler) GetAccountAllocation(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}
	groupBy, err := valuation.ParseGroupBy(r.PathValue("groupBy"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	groups, err := h.valuationService.AccountAllocation(r.Context(), userID, accountID, groupBy)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, groups)
}

// TRANSACTIONS

type createTransactionRequest struct {
	AccountID   int64           `json:"account_id"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
}

func (h *PortfolioHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction := &models.Transaction{
		AccountID:   req.AccountID,
		Category:    req.Category,
		Date:        req.Date,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
	}
	if err := h.transactionService.CreateTransaction(r.Context(), userID, transaction); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data":   transaction,
	})
}

func (h *PortfolioHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	list, err := h.transactionService.ListTransactions(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *PortfolioHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}
	transactionID, err := pathID(r, "transactionID")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := h.transactionService.DeactivateTransaction(r.Context(), userID, transactionID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Transaction deactivated.",
	})
}

// OPERATIONS

type recordOperationRequest struct {
	AssetID   int64           `json:"asset_id"`
	AccountID int64           `json:"account_id"`
	Date      time.Time       `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	Type      string          `json:"operation_type"`
}

func (h *PortfolioHandler) RecordOperation(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	var req recordOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	operation := &models.Operation{
		AssetID:   req.AssetID,
		AccountID: req.AccountID,
		Date:      req.Date,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Fees:      req.Fees,
		Type:      req.Type,
	}
	mirror, err := h.ledgerService.RecordOperation(r.Context(), userID, operation)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":      "success",
		"data":        operation,
		"transaction": mirror,
	})
}

func (h *PortfolioHandler) GetOperations(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	list, err := h.ledgerService.ListOperations(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if list == nil {
		list = []models.Operation{}
	}
	h.respondJSON(w, http.StatusOK, list)
}

// ASSETS

type createAssetRequest struct {
	Ticker   string `json:"ticker"`
	ISIN     string `json:"isin"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
	Type     string `json:"type"`
}

func (h *PortfolioHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newAsset := &models.Asset{
		Ticker:   req.Ticker,
		ISIN:     req.ISIN,
		Name:     req.Name,
		Currency: req.Currency,
		Theme:    req.Theme,
		Type:     req.Type,
	}
	if err := h.assetService.CreateAsset(r.Context(), newAsset); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data":   newAsset,
	})
}

// HISTORY

func (h *PortfolioHandler) GetPortfolioGrowth(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	series, err := h.historyService.PortfolioGrowth(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": series,
	})
}

// REBALANCE

type updateRebalanceRequest struct {
	Settings []rebalance.TargetUpdate `json:"settings"`
}

func (h *PortfolioHandler) GetRebalanceStatus(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	statuses, err := h.rebalanceService.Status(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, statuses)
}

func (h *PortfolioHandler) UpdateRebalanceTargets(w http.ResponseWriter, r *http.Request) {
	userID := h.getUserIDReq(w, r)
	if userID == "" {
		return
	}

	var req updateRebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.rebalanceService.UpdateTargets(r.Context(), userID, req.Settings); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Rebalance targets updated.",
	})
}
