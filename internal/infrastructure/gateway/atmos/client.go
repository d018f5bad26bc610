// Package atmos is the outbound client of the Atmos merchant API, used to
// create invoices that the user pays on the provider's page.
package atmos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

const (
	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	retryDelay     = 500 * time.Millisecond
)

// TokenProvider supplies a valid bearer token for the merchant API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the Atmos merchant API.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	cfg        config.AtmosConfig
	logger     logger.Interface
}

func NewClient(cfg config.AtmosConfig, tokens TokenProvider, log logger.Interface) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		cfg:        cfg,
		logger:     log.Named("atmos-client"),
	}
}

type createInvoiceRequest struct {
	StoreID string `json:"store_id"`
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoice_id"`
	PayURL    string `json:"pay_url"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// CreateInvoice creates a provider invoice for the order. Transient failures
// (network errors, 5xx) are retried; provider rejections are not.
func (c *Client) CreateInvoice(ctx context.Context, orderID string, amount int64) (*appbilling.Invoice, error) {
	payload, err := json.Marshal(createInvoiceRequest{
		StoreID: c.cfg.StoreID,
		Account: orderID,
		Amount:  amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt-1)):
			}
		}

		inv, retryable, err := c.createInvoiceOnce(ctx, payload)
		if err == nil {
			return inv, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warnw("invoice creation attempt failed",
			"attempt", attempt, "order_id", orderID, "error", err)
	}

	return nil, fmt.Errorf("invoice creation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) createInvoiceOnce(ctx context.Context, payload []byte) (*appbilling.Invoice, bool, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to obtain token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/merchant/pay/create", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build invoice request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read invoice response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("invoice endpoint returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("invoice endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var decoded createInvoiceResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, false, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	if decoded.ErrorCode != "" {
		return nil, false, fmt.Errorf("provider rejected invoice: %s (%s)", decoded.Message, decoded.ErrorCode)
	}
	if decoded.InvoiceID == "" {
		return nil, false, fmt.Errorf("provider returned empty invoice id")
	}

	return &appbilling.Invoice{
		InvoiceID: decoded.InvoiceID,
		PayURL:    decoded.PayURL,
	}, false, nil
}
