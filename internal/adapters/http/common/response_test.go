package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
)

func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(RequestIDKey, "test-request-123")
	return c, w
}

// ============================================
// Test Request ID Functions
// ============================================

func TestGetRequestID(t *testing.T) {
	t.Run("ReturnsRequestID", func(t *testing.T) {
		c, _ := setupTestContext()
		id := GetRequestID(c)
		assert.Equal(t, "test-request-123", id)
	})

	t.Run("ReturnsEmptyWhenUnset", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		assert.Equal(t, "", GetRequestID(c))
	})
}

func TestSetRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	SetRequestID(c, "req-456")

	assert.Equal(t, "req-456", GetRequestID(c))
	assert.Equal(t, "req-456", w.Header().Get(RequestIDKey))
}

// ============================================
// Test Response Helpers
// ============================================

func TestSuccess(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Success(c, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse
	require := assert.New(t)
	require.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(resp.Success)
	require.Equal("test-request-123", resp.RequestID)
}

func TestSuccessWithMeta(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	meta := &APIMeta{Page: 1, PerPage: 20, Total: 3, TotalPages: 1}
	SuccessWithMeta(c, http.StatusOK, []int{1, 2, 3}, meta)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.Total)
}

func TestError(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, http.StatusBadRequest, &APIError{Code: ErrCodeBadRequest, Message: "bad input"})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
}

func TestValidationErrorResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ValidationErrorResponse(c, []FieldError{{Field: "amount", Message: "required", Code: "invalid"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Fields, 1)
}

func TestNotFoundResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	NotFoundResponse(c, "wallet")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestBadRequestResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	BadRequestResponse(c, "malformed body")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthorizedResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	UnauthorizedResponse(c, "missing token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForbiddenResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ForbiddenResponse(c, "not allowed")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConflictResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ConflictResponse(c, "already exists")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTooManyRequestsResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	TooManyRequestsResponse(c, 30)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.Error.RetryAfter)
}

func TestInternalErrorResponse(t *testing.T) {
	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	InternalErrorResponse(c, "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ============================================
// Test HandleDomainError
// ============================================

func TestHandleDomainError(t *testing.T) {
	t.Run("ValidationErrors", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		verrs := &domainerrors.ValidationErrors{}
		verrs.Add("amount", "must be positive")

		HandleDomainError(c, verrs)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp APIResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		assert.Len(t, resp.Error.Fields, 1)
	})

	t.Run("WalletNotFound", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewWalletNotFound("wallet-123"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("HoldNotHeld", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewHoldNotHeld("hold-123"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewInsufficientBalance("wallet-123", "credit-type-123"))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)

		var resp APIResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrCodeBusinessRule, resp.Error.Code)
	})

	t.Run("DuplicateTransaction", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewDuplicateTransaction("wallet-123", "ext-1"))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Busy", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewBusy("wallet-123", "credit-type-123"))

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp APIResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp.Error.Details["retryable"])
	})

	t.Run("InvalidInput", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewInvalidInput("bad request shape"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("InternalFallback", func(t *testing.T) {
		c, w := setupTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleDomainError(c, domainerrors.NewInternal("unexpected", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

// ============================================
// Test Error Extractors
// ============================================

func TestExtractValidationError(t *testing.T) {
	verrs := &domainerrors.ValidationErrors{}
	verrs.Add("email", "invalid format")

	extracted := extractValidationErrors(verrs)
	assert.NotNil(t, extracted)
	assert.Equal(t, "email", extracted[0].Field)
}

func TestExtractValidationError_SingleValue(t *testing.T) {
	valErr := domainerrors.ValidationError{Field: "amount", Message: "must be positive"}

	extracted := extractValidationErrors(valErr)
	assert.NotNil(t, extracted)
	assert.Equal(t, "amount", extracted[0].Field)
}

func TestExtractValidationError_NonValidationErr(t *testing.T) {
	extracted := extractValidationErrors(domainerrors.NewInternal("boom", nil))
	assert.Nil(t, extracted)
}
