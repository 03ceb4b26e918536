package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeRequiresAPIKey(t *testing.T) {
	client := &GatewayClient{BaseURL: "http://localhost:0", HTTPClient: http.DefaultClient}
	_, err := client.Charge(context.Background(), ChargeRequest{UserID: 1, PlanCode: "pro"})
	assert.Error(t, err)
}

func TestChargeRejectsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"merchant suspended"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := &GatewayClient{BaseURL: srv.URL, APIKey: "k", HTTPClient: srv.Client()}
	_, err := client.Charge(context.Background(), ChargeRequest{UserID: 1, PlanCode: "pro", Amount: "79.00"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=403")
}

func TestChargeResponseSucceeded(t *testing.T) {
	assert.True(t, (&ChargeResponse{Status: "succeeded"}).Succeeded())
	assert.True(t, (&ChargeResponse{Status: " Paid "}).Succeeded())
	assert.False(t, (&ChargeResponse{Status: "declined"}).Succeeded())
	assert.False(t, (&ChargeResponse{}).Succeeded())
}

func TestParseGatewayWebhookEvent(t *testing.T) {
	payload := []byte(`{"type":"payment.succeeded","data":{"transaction_id":"tx_9","reference":"ref_1","status":"Succeeded"}}`)

	event, err := ParseGatewayWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "payment.succeeded", event.EventType)
	assert.Equal(t, "tx_9", event.TransactionID)
	assert.Equal(t, "succeeded", event.Status)
}

func TestParseGatewayWebhookEventRejectsIncomplete(t *testing.T) {
	_, err := ParseGatewayWebhookEvent([]byte(`{"data":{"transaction_id":"tx_9"}}`))
	assert.Error(t, err)

	_, err = ParseGatewayWebhookEvent([]byte(`{"type":"payment.succeeded","data":{}}`))
	assert.Error(t, err)

	_, err = ParseGatewayWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyGatewayWebhookSignature(t *testing.T) {
	payload := []byte(`{"type":"payment.succeeded"}`)
	secret := "whsec_test"

	assert.True(t, VerifyGatewayWebhookSignature(payload, signPayload(secret, payload), secret))
	assert.False(t, VerifyGatewayWebhookSignature(payload, signPayload("other", payload), secret))
	assert.False(t, VerifyGatewayWebhookSignature([]byte("tampered"), signPayload(secret, payload), secret))
	assert.False(t, VerifyGatewayWebhookSignature(payload, "", secret))
	assert.False(t, VerifyGatewayWebhookSignature(payload, signPayload(secret, payload), ""))
	assert.False(t, VerifyGatewayWebhookSignature(payload, "zz-not-hex", secret))
}
