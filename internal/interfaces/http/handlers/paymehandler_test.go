package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/application/billing/paymerpc"
	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
	"github.com/bilim-app/bilim/internal/infrastructure/repository"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

const testMerchantKey = "merchant-secret"

type noopReconciler struct{}

func (noopReconciler) ReconcileUser(ctx context.Context, userID uint) error { return nil }

func setupPaymeRouter(t *testing.T) (*gin.Engine, *user.User) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.TransactionModel{}))

	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	resolver := repository.NewAccountResolver(userRepo, txRepo)

	u, err := user.NewUser("student@bilim.uz", "+998901234567", "Aziz")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), u))

	prices, err := appbilling.NewPriceTable([]config.PricePointConfig{
		{Amount: 4990000, Plan: "starter", DurationDays: 30},
	})
	require.NoError(t, err)

	log := logger.NewLogger()
	svc := paymerpc.NewService(txRepo, resolver, prices, noopReconciler{}, config.PaymeConfig{
		MerchantKey:  testMerchantKey,
		TimeoutHours: 12,
	}, log)

	engine := gin.New()
	engine.POST("/payme", NewPaymeHandler(svc, log).Handle)
	return engine, u
}

func postPayme(t *testing.T, engine *gin.Engine, body string, authenticate bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payme", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticate {
		req.SetBasicAuth(paymerpc.AuthUsername, testMerchantKey)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) paymerpc.Response {
	var resp paymerpc.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestPaymeHandler_AuthFailuresKeepHTTP200(t *testing.T) {
	engine, _ := setupPaymeRouter(t)

	t.Run("missing credentials", func(t *testing.T) {
		w := postPayme(t, engine, `{"id":1,"method":"CheckTransaction","params":{}}`, false)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, paymerpc.CodeInsufficientPrivileges, resp.Error.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payme",
			bytes.NewBufferString(`{"id":1,"method":"CheckTransaction","params":{}}`))
		req.SetBasicAuth(paymerpc.AuthUsername, "wrong")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, paymerpc.CodeInsufficientPrivileges, resp.Error.Code)
	})
}

func TestPaymeHandler_ParseErrorKeepsHTTP200(t *testing.T) {
	engine, _ := setupPaymeRouter(t)

	w := postPayme(t, engine, `{not json`, true)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, paymerpc.CodeParseError, resp.Error.Code)
}

func TestPaymeHandler_DispatchesAuthenticatedCalls(t *testing.T) {
	engine, u := setupPaymeRouter(t)

	t.Run("check perform allows a priced amount", func(t *testing.T) {
		body, err := json.Marshal(map[string]interface{}{
			"id":     42,
			"method": paymerpc.MethodCheckPerformTransaction,
			"params": map[string]interface{}{
				"amount":  4990000,
				"account": map[string]interface{}{"user_id": u.ID()},
			},
		})
		require.NoError(t, err)

		w := postPayme(t, engine, string(body), true)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		require.Nil(t, resp.Error)
		assert.Equal(t, float64(42), resp.ID)

		result, err := json.Marshal(resp.Result)
		require.NoError(t, err)
		assert.JSONEq(t, `{"allow":true}`, string(result))
	})

	t.Run("unknown method", func(t *testing.T) {
		w := postPayme(t, engine, `{"id":7,"method":"DestroyTransaction","params":{}}`, true)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, paymerpc.CodeMethodNotFound, resp.Error.Code)
	})
}
