// Package common contains shared types for the HTTP layer.
//
// Split into its own package to avoid import cycles between handlers
// and the main http package.
package common

import (
	"net/http"
	"time"

	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
	"github.com/gin-gonic/gin"
)

// ============================================
// Standard API Response Format
// ============================================

// APIResponse - standard API response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIMeta - pagination metadata.
type APIMeta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// APIError - API error body.
type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Fields     []FieldError           `json:"fields,omitempty"`
	RetryAfter int                    `json:"retry_after,omitempty"`
}

// FieldError - a single field validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ============================================
// Error Codes
// ============================================

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeConcurrency      = "CONCURRENCY_ERROR"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// ============================================
// Request ID
// ============================================

const RequestIDKey = "X-Request-ID"

// GetRequestID returns the Request ID from the context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return ""
}

// SetRequestID stores the Request ID in the context.
func SetRequestID(c *gin.Context, id string) {
	c.Set(RequestIDKey, id)
	c.Header(RequestIDKey, id)
}

// ============================================
// Response Helpers
// ============================================

// Success writes a successful response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// SuccessWithMeta writes a successful response with pagination metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *APIMeta) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		Meta:      meta,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error writes an error response.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ============================================
// Error Response Helpers
// ============================================

// ValidationErrorResponse writes a response for validation errors.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeValidation,
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// NotFoundResponse writes a 404 response.
func NotFoundResponse(c *gin.Context, resource string) {
	Error(c, http.StatusNotFound, &APIError{
		Code:    ErrCodeNotFound,
		Message: resource + " not found",
		Details: map[string]interface{}{
			"resource": resource,
		},
	})
}

// BadRequestResponse writes a response for a malformed request.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
	})
}

// UnauthorizedResponse writes a 401 response.
func UnauthorizedResponse(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// ForbiddenResponse writes a 403 response.
func ForbiddenResponse(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
	})
}

// ConflictResponse writes a 409 response.
func ConflictResponse(c *gin.Context, message string) {
	Error(c, http.StatusConflict, &APIError{
		Code:    ErrCodeConflict,
		Message: message,
	})
}

// TooManyRequestsResponse writes a rate-limit response.
func TooManyRequestsResponse(c *gin.Context, retryAfter int) {
	Error(c, http.StatusTooManyRequests, &APIError{
		Code:       ErrCodeTooManyRequests,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	})
}

// InternalErrorResponse writes a response for an internal error.
func InternalErrorResponse(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternal,
		Message: message,
	})
}

// ============================================
// Domain Error to HTTP Error Mapper
// ============================================

// HandleDomainError translates an orchestrator/handler error into the
// HTTP response shape callers see, following the Kind-to-status table.
func HandleDomainError(c *gin.Context, err error) {
	// Field-level validation errors get their own shape: one entry per
	// offending field, 422.
	if fieldErrs := extractValidationErrors(err); fieldErrs != nil {
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeValidation,
			Message: "Request validation failed",
			Fields:  fieldErrs,
		})
		return
	}

	switch domainerrors.KindOf(err) {
	case domainerrors.KindWalletNotFound, domainerrors.KindBalanceNotFound, domainerrors.KindHoldNotFound, domainerrors.KindCreditTypeNotFound:
		Error(c, http.StatusNotFound, &APIError{Code: ErrCodeNotFound, Message: err.Error()})
	case domainerrors.KindHoldNotHeld:
		Error(c, http.StatusBadRequest, &APIError{Code: ErrCodeBadRequest, Message: err.Error()})
	case domainerrors.KindHoldAmountExceeds, domainerrors.KindInsufficientBalance:
		Error(c, http.StatusPaymentRequired, &APIError{Code: ErrCodeBusinessRule, Message: err.Error()})
	case domainerrors.KindDuplicateTransaction, domainerrors.KindCreditTypeNameExists:
		Error(c, http.StatusConflict, &APIError{Code: ErrCodeConflict, Message: err.Error()})
	case domainerrors.KindBusy:
		Error(c, http.StatusConflict, &APIError{Code: ErrCodeConflict, Message: err.Error(), Details: map[string]interface{}{"retryable": true}})
	case domainerrors.KindInvalidInput:
		Error(c, http.StatusUnprocessableEntity, &APIError{Code: ErrCodeValidation, Message: err.Error()})
	default:
		InternalErrorResponse(c, "An unexpected error occurred")
	}
}

// extractValidationErrors unwraps a *domainerrors.ValidationErrors (or a
// lone domainerrors.ValidationError) into the FieldError shape, or nil
// if err isn't one of those.
func extractValidationErrors(err error) []FieldError {
	for e := err; e != nil; e = unwrap(e) {
		if verrs, ok := e.(*domainerrors.ValidationErrors); ok {
			fields := make([]FieldError, 0, len(verrs.Errors))
			for _, v := range verrs.Errors {
				fields = append(fields, FieldError{Field: v.Field, Message: v.Message, Code: "invalid"})
			}
			return fields
		}
		if v, ok := e.(domainerrors.ValidationError); ok {
			return []FieldError{{Field: v.Field, Message: v.Message, Code: "invalid"}}
		}
	}
	return nil
}

// unwrap returns the wrapped error, if any.
func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
