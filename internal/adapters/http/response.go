// Package http contains the HTTP adapters (REST API).
//
// Package layout:
// - common/: shared types and helpers (split out to avoid import cycles)
// - middleware/: HTTP middleware (auth, logging, recovery)
// - handlers/: HTTP handlers for each resource
// - router.go: route configuration
// - server.go: HTTP server lifecycle
//
// Pattern: Adapter (Hexagonal Architecture)
// - HTTP is an outer adapter that turns HTTP requests into use case calls
// - carries no business logic
// - only handles data translation and HTTP semantics
package http

import (
	"github.com/creditledger/ledger/internal/adapters/http/common"
)

// Re-export types from common package for convenience
type (
	// APIResponse - standard API response envelope.
	APIResponse = common.APIResponse
	// APIMeta - pagination metadata.
	APIMeta = common.APIMeta
	// APIError - API error body.
	APIError = common.APIError
	// FieldError - a single field validation error.
	FieldError = common.FieldError
)

// Re-export error codes
const (
	ErrCodeValidation       = common.ErrCodeValidation
	ErrCodeNotFound         = common.ErrCodeNotFound
	ErrCodeBadRequest       = common.ErrCodeBadRequest
	ErrCodeUnauthorized     = common.ErrCodeUnauthorized
	ErrCodeForbidden        = common.ErrCodeForbidden
	ErrCodeConflict         = common.ErrCodeConflict
	ErrCodeTooManyRequests  = common.ErrCodeTooManyRequests
	ErrCodeBusinessRule     = common.ErrCodeBusinessRule
	ErrCodeDuplicateRequest = common.ErrCodeDuplicateRequest
	ErrCodeInternal         = common.ErrCodeInternal
	ErrCodeConcurrency      = common.ErrCodeConcurrency
	ErrCodeTimeout          = common.ErrCodeTimeout
	ErrCodeUnavailable      = common.ErrCodeUnavailable
)

// Re-export functions
var (
	// GetRequestID returns the Request ID from the context.
	GetRequestID = common.GetRequestID
	// SetRequestID stores the Request ID in the context.
	SetRequestID = common.SetRequestID
	// Success writes a successful response.
	Success = common.Success
	// SuccessWithMeta writes a successful response with pagination metadata.
	SuccessWithMeta = common.SuccessWithMeta
	// Error writes an error response.
	Error = common.Error
	// ValidationErrorResponse writes a validation error response.
	ValidationErrorResponse = common.ValidationErrorResponse
	// NotFoundResponse writes a 404 response.
	NotFoundResponse = common.NotFoundResponse
	// BadRequestResponse writes a response for a malformed request.
	BadRequestResponse = common.BadRequestResponse
	// UnauthorizedResponse writes a 401 response.
	UnauthorizedResponse = common.UnauthorizedResponse
	// ForbiddenResponse writes a 403 response.
	ForbiddenResponse = common.ForbiddenResponse
	// ConflictResponse writes a 409 response.
	ConflictResponse = common.ConflictResponse
	// TooManyRequestsResponse writes a rate-limit response.
	TooManyRequestsResponse = common.TooManyRequestsResponse
	// InternalErrorResponse writes a response for an internal error.
	InternalErrorResponse = common.InternalErrorResponse
	// HandleDomainError translates a domain error into an HTTP response.
	HandleDomainError = common.HandleDomainError
)
