// Package token provides OAuth token acquisition for outbound provider APIs.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/config"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// refreshMargin renews tokens this long before they actually expire.
const refreshMargin = 60 * time.Second

// AtmosTokenProvider fetches and caches the client-credentials bearer token
// for the Atmos merchant API. Concurrent callers hitting an expired token
// share one refresh request through singleflight.
type AtmosTokenProvider struct {
	httpClient *http.Client
	cfg        config.AtmosConfig
	group      singleflight.Group
	logger     logger.Interface

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewAtmosTokenProvider(cfg config.AtmosConfig, log logger.Interface) *AtmosTokenProvider {
	return &AtmosTokenProvider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		logger:     log.Named("atmos-token"),
	}
}

// Token returns a valid bearer token, refreshing it when needed.
func (p *AtmosTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	token, expiresAt := p.token, p.expiresAt
	p.mu.RUnlock()

	if token != "" && biztime.NowUTC().Before(expiresAt.Add(-refreshMargin)) {
		return token, nil
	}

	fresh, err, _ := p.group.Do("token", func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed
		// while this one waited.
		p.mu.RLock()
		token, expiresAt := p.token, p.expiresAt
		p.mu.RUnlock()
		if token != "" && biztime.NowUTC().Before(expiresAt.Add(-refreshMargin)) {
			return token, nil
		}
		return p.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return fresh.(string), nil
}

func (p *AtmosTokenProvider) refresh(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(p.cfg.ConsumerKey, p.cfg.ConsumerSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	expiresAt := biztime.NowUTC().Add(time.Duration(body.ExpiresIn) * time.Second)

	p.mu.Lock()
	p.token = body.AccessToken
	p.expiresAt = expiresAt
	p.mu.Unlock()

	p.logger.Debugw("token refreshed", "expires_at", expiresAt)
	return body.AccessToken, nil
}
