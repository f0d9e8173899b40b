// Package handlers - Transaction HTTP handlers: the append-only read
// surface over the ledger log (GET /transactions, GET /transactions/{id}).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creditledger/ledger/internal/adapters/http/common"
	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
)

// TransactionHandler serves the transaction read surface.
type TransactionHandler struct {
	transactions ports.TransactionStore
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(transactions ports.TransactionStore) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// PayloadResponse mirrors entities.Payload for API output.
type PayloadResponse struct {
	Amount            string  `json:"amount,omitempty"`
	HoldTransactionID *string `json:"hold_transaction_id,omitempty"`
	ResetSpent        bool    `json:"reset_spent,omitempty"`
}

// TransactionResponse is the shape returned for a single transaction,
// per the log-entry contract: identity, typed payload, lifecycle
// status, and (once completed) the balance snapshot it produced.
type TransactionResponse struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	CreditTypeID    string           `json:"credit_type_id"`
	WalletID        string           `json:"wallet_id"`
	Issuer          string           `json:"issuer"`
	Description     string           `json:"description"`
	ExternalID      *string          `json:"external_id,omitempty"`
	Payload         PayloadResponse  `json:"payload"`
	Status          string           `json:"status"`
	HoldStatus      *string          `json:"hold_status,omitempty"`
	BalanceSnapshot *BalanceResponse `json:"balance_snapshot,omitempty"`
	Context         map[string]any   `json:"context"`
	SubscriptionID  *string          `json:"subscription_id,omitempty"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

func transactionResponse(tx *entities.Transaction) TransactionResponse {
	payload := tx.Payload()
	payloadResp := PayloadResponse{ResetSpent: payload.ResetSpent}
	if !payload.Amount.IsZero() {
		payloadResp.Amount = payload.Amount.String()
	}
	if payload.HoldTransactionID != nil {
		s := payload.HoldTransactionID.String()
		payloadResp.HoldTransactionID = &s
	}

	var holdStatus *string
	if hs := tx.HoldStatus(); hs != nil {
		s := string(*hs)
		holdStatus = &s
	}

	var snapshotResp *BalanceResponse
	if snap := tx.BalanceSnapshot(); snap != nil {
		snapshotResp = &BalanceResponse{
			CreditTypeID: tx.CreditTypeID().String(),
			Available:    snap.Available.String(),
			Held:         snap.Held.String(),
			Spent:        snap.Spent.String(),
			OverallSpent: snap.OverallSpent.String(),
		}
	}

	return TransactionResponse{
		ID:              tx.ID().String(),
		Type:            string(tx.Type()),
		CreditTypeID:    tx.CreditTypeID().String(),
		WalletID:        tx.WalletID().String(),
		Issuer:          tx.Issuer(),
		Description:     tx.Description(),
		ExternalID:      tx.ExternalID(),
		Payload:         payloadResp,
		Status:          string(tx.Status()),
		HoldStatus:      holdStatus,
		BalanceSnapshot: snapshotResp,
		Context:         tx.Context(),
		SubscriptionID:  tx.SubscriptionID(),
		CreatedAt:       tx.CreatedAt().Format(time.RFC3339),
		UpdatedAt:       tx.UpdatedAt().Format(time.RFC3339),
	}
}

// GetTransaction handles GET /transactions/{id}.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.BadRequestResponse(c, "invalid transaction id")
		return
	}

	tx, err := h.transactions.Get(c.Request.Context(), id, nil, nil)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	if tx == nil {
		common.NotFoundResponse(c, "transaction")
		return
	}

	common.Success(c, http.StatusOK, transactionResponse(tx))
}

// ListTransactions handles GET /transactions with optional
// wallet_id/credit_type_id/type/status/from/to filters.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	params := ParsePagination(c)

	var filter ports.TransactionFilter
	if walletID := c.Query("wallet_id"); walletID != "" {
		id, err := uuid.Parse(walletID)
		if err != nil {
			common.BadRequestResponse(c, "invalid wallet_id")
			return
		}
		filter.WalletID = &id
	}
	if creditTypeID := c.Query("credit_type_id"); creditTypeID != "" {
		id, err := uuid.Parse(creditTypeID)
		if err != nil {
			common.BadRequestResponse(c, "invalid credit_type_id")
			return
		}
		filter.CreditTypeID = &id
	}
	if txType := c.Query("type"); txType != "" {
		t := entities.TransactionType(txType)
		filter.Type = &t
	}
	if status := c.Query("status"); status != "" {
		s := entities.TransactionStatus(status)
		filter.Status = &s
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			common.BadRequestResponse(c, "invalid from timestamp, expected RFC3339")
			return
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			common.BadRequestResponse(c, "invalid to timestamp, expected RFC3339")
			return
		}
		filter.To = &t
	}

	txs, total, err := h.transactions.List(c.Request.Context(), filter, params.Offset(), params.PerPage)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, transactionResponse(tx))
	}
	common.SuccessWithMeta(c, http.StatusOK, resp, BuildMeta(params, total))
}

// RegisterRoutes wires the transaction read endpoints onto the group.
func (h *TransactionHandler) RegisterRoutes(rg gin.IRouter) {
	transactions := rg.Group("/transactions")
	{
		transactions.GET("", h.ListTransactions)
		transactions.GET("/:id", h.GetTransaction)
	}
}
