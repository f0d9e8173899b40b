// Package handlers contains the HTTP handlers for the REST API.
//
// A handler is an Adapter in Clean Architecture terms:
// - accepts the HTTP request
// - translates it into a Command/Query DTO
// - invokes the use case
// - translates the result into an HTTP response
//
// SOLID:
// - SRP: each handler owns exactly one endpoint
// - DIP: a handler depends on the use case interface
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/creditledger/ledger/internal/adapters/http/common"
)

// ============================================
// Custom Validator Setup
// ============================================

var (
	setupOnce sync.Once
)

// SetupValidator registers custom validators with Gin's binding engine.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// use the json tag for field names in error messages
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("decimal_amount", validateDecimalAmount)
			_ = v.RegisterValidation("wallet_status", validateWalletStatus)
			_ = v.RegisterValidation("transaction_type", validateTransactionType)
		}
	})
}

// ============================================
// Custom Validators
// ============================================

// validateDecimalAmount checks the amount format (arbitrary-precision
// decimal string, as consumed by valueobjects.NewDecimal).
var decimalPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func validateDecimalAmount(fl validator.FieldLevel) bool {
	amount := fl.Field().String()
	return decimalPattern.MatchString(amount)
}

// validateWalletStatus checks the wallet status value.
func validateWalletStatus(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	validStatuses := map[string]bool{
		"ACTIVE":   true,
		"INACTIVE": true,
	}
	return validStatuses[status]
}

// validateTransactionType checks the ledger operation type.
func validateTransactionType(fl validator.FieldLevel) bool {
	txType := fl.Field().String()
	validTypes := map[string]bool{
		"deposit": true,
		"debit":   true,
		"hold":    true,
		"release": true,
		"adjust":  true,
	}
	return validTypes[txType]
}

// ============================================
// Validation Error Handling
// ============================================

// HandleValidationErrors translates validation errors into an HTTP response.
func HandleValidationErrors(c *gin.Context, err error) {
	var fieldErrors []common.FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			fieldErrors = append(fieldErrors, common.FieldError{
				Field:   fieldErr.Field(),
				Message: getValidationMessage(fieldErr),
				Code:    fieldErr.Tag(),
			})
		}
	}

	if len(fieldErrors) == 0 {
		// couldn't parse field errors - fall back to a generic message
		common.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	common.ValidationErrorResponse(c, fieldErrors)
}

// getValidationMessage returns a human-readable error message.
func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		return "Value is too short (minimum: " + fe.Param() + ")"
	case "max":
		return "Value is too long (maximum: " + fe.Param() + ")"
	case "len":
		return "Value must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Value must be one of: " + fe.Param()
	case "decimal_amount":
		return "Invalid amount format (use a decimal string like '100.50')"
	case "wallet_status":
		return "Invalid wallet status"
	case "transaction_type":
		return "Invalid transaction type"
	default:
		return "Invalid value"
	}
}

// ============================================
// Request Parsing Helpers
// ============================================

// BindJSON binds the JSON request body, writing a response itself on error.
// Returns true on success, false if an error response was already written.
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindQuery binds query string parameters.
func BindQuery[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindURI binds URI path parameters.
func BindURI[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindUri(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// ============================================
// Pagination Helper
// ============================================

// PaginationParams - pagination parameters from the query string.
type PaginationParams struct {
	Page    int `form:"page" binding:"min=1"`
	PerPage int `form:"per_page" binding:"min=1,max=100"`
}

// DefaultPaginationParams returns the default pagination values.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page:    1,
		PerPage: 20,
	}
}

// Offset computes the SQL OFFSET for these pagination params.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePagination parses pagination parameters from the request.
func ParsePagination(c *gin.Context) PaginationParams {
	params := DefaultPaginationParams()

	if page := c.Query("page"); page != "" {
		if p := parseInt(page); p > 0 {
			params.Page = p
		}
	}

	if perPage := c.Query("per_page"); perPage != "" {
		if pp := parseInt(perPage); pp > 0 && pp <= 100 {
			params.PerPage = pp
		}
	}

	return params
}

// parseInt parses a string into an int.
func parseInt(s string) int {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// BuildMeta builds the pagination metadata for a paginated response.
func BuildMeta(params PaginationParams, total int) *common.APIMeta {
	totalPages := total / params.PerPage
	if total%params.PerPage > 0 {
		totalPages++
	}

	return &common.APIMeta{
		Page:       params.Page,
		PerPage:    params.PerPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
