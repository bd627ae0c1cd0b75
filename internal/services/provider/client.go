package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"topvend/internal/config"
	apperrors "topvend/internal/errors"

	"github.com/shopspring/decimal"
)

// Client is the HTTP implementation of Gateway. Network failures and
// 5xx responses are retried a bounded number of times with backoff;
// exhausting the budget returns ProviderUnavailable. A 2xx response with
// a failed body, or any 4xx, is a business decline and is never retried.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
}

func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.CallTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

func (c *Client) PurchaseAirtime(ctx context.Context, network, phone string, amount decimal.Decimal) (*PurchaseResult, error) {
	return c.post(ctx, "/airtime", map[string]interface{}{
		"network": network,
		"phone":   phone,
		"amount":  amount.String(),
	})
}

func (c *Client) PurchaseData(ctx context.Context, network, phone, planCode string) (*PurchaseResult, error) {
	return c.post(ctx, "/data", map[string]interface{}{
		"network":   network,
		"phone":     phone,
		"plan_code": planCode,
	})
}

type providerResponse struct {
	Status    string                 `json:"status"`
	Reference string                 `json:"reference"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, payload map[string]interface{}) (*PurchaseResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			log.Printf("provider call retry %d after %s: %v", attempt, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, apperrors.ErrProviderUnavailable
			}
		}

		result, retryable, err := c.doOnce(ctx, path, body)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return result, err
		}
		lastErr = err
	}

	return nil, apperrors.ErrProviderUnavailable
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte) (*PurchaseResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	var parsed providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, true, fmt.Errorf("failed to decode provider response: %w", err)
	}

	raw := parsed.Data
	if raw == nil {
		raw = map[string]interface{}{}
	}
	raw["status"] = parsed.Status
	raw["message"] = parsed.Message

	result := &PurchaseResult{
		Success:           resp.StatusCode < 400 && parsed.Status == "success",
		ProviderReference: parsed.Reference,
		Message:           parsed.Message,
		RawResponse:       raw,
	}
	if !result.Success {
		return result, false, apperrors.ErrProviderRejected
	}
	return result, false, nil
}
