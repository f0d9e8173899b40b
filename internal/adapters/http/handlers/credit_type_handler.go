// Package handlers - CreditType HTTP handlers: registration of the
// named credit kinds wallets hold balances in.
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

// CreditTypeHandler serves credit type registration and lookup.
type CreditTypeHandler struct {
	creditTypes ports.CreditTypeRepository
}

// NewCreditTypeHandler constructs a CreditTypeHandler.
func NewCreditTypeHandler(creditTypes ports.CreditTypeRepository) *CreditTypeHandler {
	return &CreditTypeHandler{creditTypes: creditTypes}
}

// CreateCreditTypeRequest is the body of POST /credit-types.
type CreateCreditTypeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreditTypeResponse is a CreditType's API representation.
type CreditTypeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func creditTypeResponse(ct *entities.CreditType) CreditTypeResponse {
	return CreditTypeResponse{
		ID:          ct.ID().String(),
		Name:        ct.Name(),
		Description: ct.Description(),
		CreatedAt:   ct.CreatedAt().Format(time.RFC3339),
		UpdatedAt:   ct.UpdatedAt().Format(time.RFC3339),
	}
}

// CreateCreditType handles POST /credit-types. Name uniqueness is
// enforced by the store and surfaced as a 409 via HandleDomainError.
func (h *CreditTypeHandler) CreateCreditType(c *gin.Context) {
	var req CreateCreditTypeRequest
	if !BindJSON(c, &req) {
		return
	}

	creditType, err := entities.NewCreditType(req.Name, req.Description)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	if err := h.creditTypes.Save(c.Request.Context(), creditType); err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, creditTypeResponse(creditType))
}

// GetCreditType handles GET /credit-types/{id}.
func (h *CreditTypeHandler) GetCreditType(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.BadRequestResponse(c, "invalid credit type id")
		return
	}

	creditType, err := h.creditTypes.FindByID(c.Request.Context(), id)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, creditTypeResponse(creditType))
}

// ListCreditTypes handles GET /credit-types.
func (h *CreditTypeHandler) ListCreditTypes(c *gin.Context) {
	params := ParsePagination(c)

	creditTypes, total, err := h.creditTypes.List(c.Request.Context(), params.Offset(), params.PerPage)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	resp := make([]CreditTypeResponse, 0, len(creditTypes))
	for _, ct := range creditTypes {
		resp = append(resp, creditTypeResponse(ct))
	}
	common.SuccessWithMeta(c, http.StatusOK, resp, BuildMeta(params, total))
}

// RegisterRoutes wires the credit type endpoints onto the given group.
func (h *CreditTypeHandler) RegisterRoutes(rg gin.IRouter) {
	creditTypes := rg.Group("/credit-types")
	{
		creditTypes.POST("", h.CreateCreditType)
		creditTypes.GET("", h.ListCreditTypes)
		creditTypes.GET("/:id", h.GetCreditType)
	}
}
