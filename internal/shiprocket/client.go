package shiprocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/config"
	"github.com/parcelops/shipcost-reconciler/internal/metrics"
)

// Client talks to the logistics platform's REST API. All calls attach the
// bearer token from the TokenManager and honor the caller's context.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  *TokenManager
	log     *zap.Logger

	orderPageSize   int
	orderPageLimit  int
	ledgerPageSize  int
	ledgerPageLimit int
}

// NewClient builds a Client. The TokenManager should share the same
// http.Client so connection reuse covers the login endpoint too.
func NewClient(cfg config.ShiprocketConfig, tokens *TokenManager, httpc *http.Client, log *zap.Logger) *Client {
	return &Client{
		baseURL:         cfg.BaseURL,
		httpc:           httpc,
		tokens:          tokens,
		log:             log,
		orderPageSize:   cfg.OrderPageSize,
		orderPageLimit:  cfg.OrderPageLimit,
		ledgerPageSize:  cfg.LedgerPageSize,
		ledgerPageLimit: cfg.LedgerPageLimit,
	}
}

// getJSON issues an authenticated GET against path and decodes the JSON
// response into out. Non-2xx statuses become *APIError.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.PlatformRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
