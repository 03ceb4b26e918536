package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/novrh/platform/internal/pkg/env"
)

const defaultGatewayBaseURL = "https://api.novpay.example.com/v1"

// GatewayClient talks to the hosted payment gateway over HTTPS. All requests
// carry the merchant API key; responses are JSON.
type GatewayClient struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

type ChargeRequest struct {
	UserID    uint   `json:"user_id"`
	PlanCode  string `json:"plan_code"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type ChargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// WebhookEvent is a parsed gateway webhook payload.
type WebhookEvent struct {
	EventType     string
	TransactionID string
	Reference     string
	Status        string
}

func NewGatewayClientFromEnv() *GatewayClient {
	return &GatewayClient{
		BaseURL: strings.TrimRight(env.GetEnv("PAYMENT_GATEWAY_URL", defaultGatewayBaseURL), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("PAYMENT_GATEWAY_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Succeeded reports whether the gateway accepted the charge.
func (r *ChargeResponse) Succeeded() bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "succeeded", "completed", "paid":
		return true
	default:
		return false
	}
}

// Charge submits a payment and returns the gateway's decision. A declined
// card is not an error; callers check Succeeded on the response.
func (c *GatewayClient) Charge(ctx context.Context, in ChargeRequest) (*ChargeResponse, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYMENT_GATEWAY_API_KEY is not configured")
	}
	if in.UserID == 0 || strings.TrimSpace(in.PlanCode) == "" {
		return nil, errors.New("user_id and plan_code are required")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway charge failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out ChargeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.TransactionID) == "" {
		return nil, errors.New("gateway charge returned empty transaction_id")
	}
	return &out, nil
}

// ParseGatewayWebhookEvent decodes the webhook body the gateway posts after
// asynchronous settlement. Signature verification happens before parsing.
func ParseGatewayWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		Type string `json:"type"`
		Data struct {
			TransactionID string `json:"transaction_id"`
			Reference     string `json:"reference"`
			Status        string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	out := &WebhookEvent{
		EventType:     strings.TrimSpace(raw.Type),
		TransactionID: strings.TrimSpace(raw.Data.TransactionID),
		Reference:     strings.TrimSpace(raw.Data.Reference),
		Status:        strings.ToLower(strings.TrimSpace(raw.Data.Status)),
	}
	if out.EventType == "" {
		return nil, errors.New("gateway webhook payload missing event type")
	}
	if out.TransactionID == "" {
		return nil, errors.New("gateway webhook payload missing transaction id")
	}
	return out, nil
}
