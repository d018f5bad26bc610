package atmos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.AtmosConfig{
		StoreID: "store-42",
		BaseURL: baseURL,
	}, staticTokens("test-token"), logger.NewLogger())
}

func TestClient_CreateInvoice(t *testing.T) {
	t.Run("success returns the provider invoice", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.Equal(t, "/merchant/pay/create", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var req createInvoiceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "store-42", req.StoreID)
			assert.Equal(t, "ord-123", req.Account)
			assert.Equal(t, int64(4990000), req.Amount)

			json.NewEncoder(w).Encode(createInvoiceResponse{
				InvoiceID: "inv-777",
				PayURL:    "https://pay.example/inv-777",
			})
		}))
		defer srv.Close()

		inv, err := newTestClient(srv.URL).CreateInvoice(context.Background(), "ord-123", 4990000)
		require.NoError(t, err)
		assert.Equal(t, "inv-777", inv.InvoiceID)
		assert.Equal(t, "https://pay.example/inv-777", inv.PayURL)
		assert.Equal(t, 1, calls, "a successful call must not be retried")
	})

	t.Run("5xx is retried until it succeeds", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(createInvoiceResponse{InvoiceID: "inv-1", PayURL: "https://pay.example/inv-1"})
		}))
		defer srv.Close()

		inv, err := newTestClient(srv.URL).CreateInvoice(context.Background(), "ord-1", 4990000)
		require.NoError(t, err)
		assert.Equal(t, "inv-1", inv.InvoiceID)
		assert.Equal(t, 3, calls)
	})

	t.Run("provider rejection is not retried", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(createInvoiceResponse{ErrorCode: "INVALID_AMOUNT", Message: "bad amount"})
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).CreateInvoice(context.Background(), "ord-2", 123)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_AMOUNT")
		assert.Equal(t, 1, calls)
	})
}
