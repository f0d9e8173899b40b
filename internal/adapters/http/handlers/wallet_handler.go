// Package handlers - wallet endpoints: the write surface that drives
// the orchestrator (deposit/debit/hold/release/adjust), plus the
// read surface (GET /wallets/{id}) returning identity and balances.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creditledger/ledger/internal/adapters/http/common"
	"github.com/creditledger/ledger/internal/adapters/http/middleware"
	"github.com/creditledger/ledger/internal/application/orchestrator"
	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
)

// WalletHandler serves the wallet write surface (via the Orchestrator)
// and the wallet read surface (identity + balances).
type WalletHandler struct {
	orchestrator *orchestrator.Orchestrator
	wallets      ports.WalletRepository
	balances     ports.BalanceStore
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(orch *orchestrator.Orchestrator, wallets ports.WalletRepository, balances ports.BalanceStore) *WalletHandler {
	return &WalletHandler{orchestrator: orch, wallets: wallets, balances: balances}
}

// ============================================
// Request/Response DTOs
// ============================================

// CreateWalletRequest is the body of POST /wallets.
type CreateWalletRequest struct {
	Name    string         `json:"name" binding:"required"`
	Context map[string]any `json:"context"`
}

// operationRequest is the shared envelope every write endpoint binds.
// The nested payload's Amount/HoldTransactionID/ResetSpent fields vary
// by operation, so buildPayload reads only the subset it needs.
type operationRequest struct {
	CreditTypeID   string           `json:"credit_type_id" binding:"required,uuid"`
	Description    string           `json:"description"`
	Issuer         string           `json:"issuer"`
	ExternalID     *string          `json:"external_id"`
	Context        map[string]any   `json:"context"`
	SubscriptionID *string          `json:"subscription_id"`
	Payload        payloadRequest   `json:"payload" binding:"required"`
}

// payloadRequest is the wire shape of the typed operation body nested
// under "payload".
type payloadRequest struct {
	Type              string  `json:"type"`
	Amount            string  `json:"amount"`
	HoldTransactionID *string `json:"hold_transaction_id"`
	ResetSpent        bool    `json:"reset_spent"`
}

// BalanceResponse is one credit type's balance row in GET /wallets/{id}.
type BalanceResponse struct {
	CreditTypeID string `json:"credit_type_id"`
	Available    string `json:"available"`
	Held         string `json:"held"`
	Spent        string `json:"spent"`
	OverallSpent string `json:"overall_spent"`
}

// WalletResponse is the payload of GET /wallets/{id}.
type WalletResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Context   map[string]any    `json:"context"`
	Status    string            `json:"status"`
	Balances  []BalanceResponse `json:"balances"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// ============================================
// Write endpoints
// ============================================

// CreateWallet handles POST /wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if !BindJSON(c, &req) {
		return
	}

	wallet, err := entities.NewWallet(req.Name, req.Context)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	if err := h.wallets.Save(c.Request.Context(), wallet); err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, walletResponse(wallet, nil))
}

// Deposit handles POST /wallets/{wallet_id}/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.submit(c, entities.TransactionTypeDeposit)
}

// Debit handles POST /wallets/{wallet_id}/debit.
func (h *WalletHandler) Debit(c *gin.Context) {
	h.submit(c, entities.TransactionTypeDebit)
}

// Hold handles POST /wallets/{wallet_id}/hold.
func (h *WalletHandler) Hold(c *gin.Context) {
	h.submit(c, entities.TransactionTypeHold)
}

// Release handles POST /wallets/{wallet_id}/release.
func (h *WalletHandler) Release(c *gin.Context) {
	h.submit(c, entities.TransactionTypeRelease)
}

// Adjust handles POST /wallets/{wallet_id}/adjust.
func (h *WalletHandler) Adjust(c *gin.Context) {
	h.submit(c, entities.TransactionTypeAdjust)
}

// submit binds the shared operation envelope, builds the typed
// payload for txType, and drives it through the orchestrator.
func (h *WalletHandler) submit(c *gin.Context, txType entities.TransactionType) {
	walletID, err := uuid.Parse(c.Param("wallet_id"))
	if err != nil {
		common.BadRequestResponse(c, "invalid wallet_id")
		return
	}

	var req operationRequest
	if !BindJSON(c, &req) {
		return
	}

	creditTypeID, err := uuid.Parse(req.CreditTypeID)
	if err != nil {
		common.BadRequestResponse(c, "invalid credit_type_id")
		return
	}

	payload, verrs := buildPayload(txType, req)
	if verrs.HasErrors() {
		common.HandleDomainError(c, verrs)
		return
	}

	issuer := req.Issuer
	if issuer == "" {
		issuer = issuerFromContext(c)
	}

	tx, err := h.orchestrator.Submit(c.Request.Context(), orchestrator.Request{
		WalletID:       walletID,
		CreditTypeID:   creditTypeID,
		Type:           txType,
		Payload:        payload,
		ExternalID:     req.ExternalID,
		Issuer:         issuer,
		Description:    req.Description,
		Context:        req.Context,
		SubscriptionID: req.SubscriptionID,
	})
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, transactionResponse(tx))
}

// buildPayload validates and assembles the typed payload for an
// operation type. Amounts must be strictly positive decimal strings
// except adjust's target, which may be any non-negative decimal.
func buildPayload(txType entities.TransactionType, req operationRequest) (entities.Payload, *domainerrors.ValidationErrors) {
	verrs := &domainerrors.ValidationErrors{}
	var payload entities.Payload
	body := req.Payload

	if body.Type != "" && body.Type != string(txType) {
		verrs.Add("payload.type", "does not match the operation endpoint")
	}

	switch txType {
	case entities.TransactionTypeDeposit, entities.TransactionTypeHold:
		amount, ok := parsePositiveAmount(body.Amount, verrs)
		if ok {
			payload.Amount = amount
		}
	case entities.TransactionTypeDebit:
		amount, ok := parsePositiveAmount(body.Amount, verrs)
		if ok {
			payload.Amount = amount
		}
		if body.HoldTransactionID != nil {
			holdID, err := uuid.Parse(*body.HoldTransactionID)
			if err != nil {
				verrs.Add("payload.hold_transaction_id", "must be a valid UUID")
			} else {
				payload.HoldTransactionID = &holdID
			}
		}
	case entities.TransactionTypeRelease:
		if body.HoldTransactionID == nil {
			verrs.Add("payload.hold_transaction_id", "is required")
			break
		}
		holdID, err := uuid.Parse(*body.HoldTransactionID)
		if err != nil {
			verrs.Add("payload.hold_transaction_id", "must be a valid UUID")
		} else {
			payload.HoldTransactionID = &holdID
		}
	case entities.TransactionTypeAdjust:
		amount, err := valueobjects.NewDecimal(body.Amount)
		if err != nil || amount.IsNegative() {
			verrs.Add("payload.amount", "must be a non-negative decimal")
		} else {
			payload.Amount = amount
		}
		payload.ResetSpent = body.ResetSpent
	}

	return payload, verrs
}

func parsePositiveAmount(raw string, verrs *domainerrors.ValidationErrors) (valueobjects.Decimal, bool) {
	amount, err := valueobjects.NewDecimal(raw)
	if err != nil || !amount.IsPositive() {
		verrs.Add("payload.amount", "must be a strictly positive decimal")
		return valueobjects.Zero(), false
	}
	return amount, true
}

// ============================================
// Read endpoint
// ============================================

// GetWallet handles GET /wallets/{id}: identity plus every balance row
// the wallet holds.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.BadRequestResponse(c, "invalid wallet id")
		return
	}

	wallet, err := h.wallets.FindByID(c.Request.Context(), id)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	balances, err := h.balances.ListByWallet(c.Request.Context(), id)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, walletResponse(wallet, balances))
}

// ListWallets handles GET /wallets.
func (h *WalletHandler) ListWallets(c *gin.Context) {
	params := ParsePagination(c)

	var filter ports.WalletFilter
	if status := c.Query("status"); status != "" {
		s := entities.WalletStatus(status)
		filter.Status = &s
	}
	if name := c.Query("name"); name != "" {
		filter.Name = &name
	}

	wallets, total, err := h.wallets.List(c.Request.Context(), filter, params.Offset(), params.PerPage)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	resp := make([]WalletResponse, 0, len(wallets))
	for _, w := range wallets {
		resp = append(resp, walletResponse(w, nil))
	}
	common.SuccessWithMeta(c, http.StatusOK, resp, BuildMeta(params, total))
}

// RegisterRoutes wires the wallet endpoints onto the given group.
func (h *WalletHandler) RegisterRoutes(rg gin.IRouter) {
	wallets := rg.Group("/wallets")
	{
		wallets.POST("", h.CreateWallet)
		wallets.GET("", h.ListWallets)
		wallets.GET("/:id", h.GetWallet)
		wallets.POST("/:wallet_id/deposit", h.Deposit)
		wallets.POST("/:wallet_id/debit", h.Debit)
		wallets.POST("/:wallet_id/hold", h.Hold)
		wallets.POST("/:wallet_id/release", h.Release)
		wallets.POST("/:wallet_id/adjust", h.Adjust)
	}
}

const timeLayout = time.RFC3339

func walletResponse(w *entities.Wallet, balances []*entities.Balance) WalletResponse {
	balanceResp := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		balanceResp = append(balanceResp, BalanceResponse{
			CreditTypeID: b.CreditTypeID().String(),
			Available:    b.Available().String(),
			Held:         b.Held().String(),
			Spent:        b.Spent().String(),
			OverallSpent: b.OverallSpent().String(),
		})
	}
	return WalletResponse{
		ID:        w.ID().String(),
		Name:      w.Name(),
		Context:   w.Context(),
		Status:    string(w.Status()),
		Balances:  balanceResp,
		CreatedAt: w.CreatedAt().Format(timeLayout),
		UpdatedAt: w.UpdatedAt().Format(timeLayout),
	}
}

// issuerFromContext reads the issuer stamped by middleware.IssuerExtractor.
func issuerFromContext(c *gin.Context) string {
	return middleware.GetIssuer(c)
}
