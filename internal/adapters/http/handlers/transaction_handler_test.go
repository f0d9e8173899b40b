package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditledger/ledger/internal/domain/entities"
)

func setupTransactionTestRouter(handler *TransactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func newTestTransactionHandler() (*TransactionHandler, *fakeTransactionStore) {
	store := newFakeTransactionStore()
	return NewTransactionHandler(store), store
}

func seedTransaction(t *testing.T, store *fakeTransactionStore, walletID, creditTypeID uuid.UUID, txType entities.TransactionType) *entities.Transaction {
	t.Helper()
	payload := entities.Payload{Amount: mustDecimal(t, "25")}
	tx, err := entities.NewTransaction(walletID, creditTypeID, txType, payload, nil, "test-issuer", "seed", nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), tx))
	return tx
}

func TestNewTransactionHandler(t *testing.T) {
	handler, _ := newTestTransactionHandler()
	assert.NotNil(t, handler)
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	handler, store := newTestTransactionHandler()
	router := setupTransactionTestRouter(handler)

	walletID, creditTypeID := uuid.New(), uuid.New()
	tx := seedTransaction(t, store, walletID, creditTypeID, entities.TransactionTypeDeposit)

	t.Run("Found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/"+tx.ID().String(), nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/not-a-uuid", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	handler, store := newTestTransactionHandler()
	router := setupTransactionTestRouter(handler)

	walletID, creditTypeID := uuid.New(), uuid.New()
	seedTransaction(t, store, walletID, creditTypeID, entities.TransactionTypeDeposit)
	seedTransaction(t, store, walletID, creditTypeID, entities.TransactionTypeDebit)
	seedTransaction(t, store, uuid.New(), uuid.New(), entities.TransactionTypeDeposit)

	t.Run("NoFilter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("FilterByWallet", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions?wallet_id="+walletID.String(), nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("InvalidWalletIDFilter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions?wallet_id=not-a-uuid", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidFromTimestamp", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions?from=not-a-date", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("FilterByType", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions?type=deposit", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTransactionHandler_RegisterRoutes(t *testing.T) {
	handler, _ := newTestTransactionHandler()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler.RegisterRoutes(router.Group("/api/v1"))

	var paths []string
	for _, r := range router.Routes() {
		paths = append(paths, r.Method+" "+r.Path)
	}
	assert.Contains(t, paths, "GET /api/v1/transactions")
	assert.Contains(t, paths, "GET /api/v1/transactions/:id")
}
