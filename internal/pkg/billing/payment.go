package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/env"
)

// PaymentResult is the provider-agnostic outcome of a payment attempt.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
}

// PaymentProcessor charges a user for a plan and records the payment log
// entry. Implementations: SimulatedProcessor (dev/stand-in) and
// GatewayProcessor (real HTTP gateway).
type PaymentProcessor interface {
	Process(ctx context.Context, userID uint, plan *models.Plan, subscriptionID uint) (*PaymentResult, error)
}

// SimulatedProcessor is a stand-in for a real payment provider: it waits a
// fixed artificial delay, writes a completed payment row with a synthetic
// transaction ID and reports success unconditionally. Never use in prod.
type SimulatedProcessor struct {
	repo  Repository
	delay time.Duration
}

func NewSimulatedProcessor(repo Repository) *SimulatedProcessor {
	return &SimulatedProcessor{repo: repo, delay: 1500 * time.Millisecond}
}

// WithDelay overrides the artificial processing delay; tests set it to zero.
func (p *SimulatedProcessor) WithDelay(d time.Duration) *SimulatedProcessor {
	p.delay = d
	return p
}

func (p *SimulatedProcessor) Process(ctx context.Context, userID uint, plan *models.Plan, subscriptionID uint) (*PaymentResult, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	txID := "sim_" + uuid.NewString()
	payment := &models.Payment{
		UserID:         userID,
		PlanID:         plan.ID,
		SubscriptionID: subscriptionID,
		Provider:       models.PaymentProviderSimulated,
		TransactionID:  txID,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Status:         models.PaymentTxStatusCompleted,
	}
	if err := p.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Success:       true,
		TransactionID: txID,
		Provider:      models.PaymentProviderSimulated,
		Status:        models.PaymentTxStatusCompleted,
	}, nil
}

// GatewayProcessor charges through the external payment gateway.
type GatewayProcessor struct {
	repo   Repository
	client *GatewayClient
}

func NewGatewayProcessor(repo Repository, client *GatewayClient) *GatewayProcessor {
	return &GatewayProcessor{repo: repo, client: client}
}

func (p *GatewayProcessor) Process(ctx context.Context, userID uint, plan *models.Plan, subscriptionID uint) (*PaymentResult, error) {
	resp, err := p.client.Charge(ctx, ChargeRequest{
		UserID:    userID,
		PlanCode:  plan.Code,
		Amount:    plan.Price.StringFixed(2),
		Currency:  plan.Currency,
		Reference: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	status := models.PaymentTxStatusFailed
	success := resp.Succeeded()
	if success {
		status = models.PaymentTxStatusCompleted
	}

	payment := &models.Payment{
		UserID:         userID,
		PlanID:         plan.ID,
		SubscriptionID: subscriptionID,
		Provider:       models.PaymentProviderGateway,
		TransactionID:  resp.TransactionID,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Status:         status,
	}
	if err := p.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Success:       success,
		TransactionID: resp.TransactionID,
		Provider:      models.PaymentProviderGateway,
		Status:        status,
	}, nil
}

// NewProcessorFromEnv selects the processor via PAYMENT_PROVIDER. Anything
// other than "gateway" falls back to the simulator.
func NewProcessorFromEnv(repo Repository) PaymentProcessor {
	switch strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_PROVIDER", models.PaymentProviderSimulated))) {
	case models.PaymentProviderGateway:
		return NewGatewayProcessor(repo, NewGatewayClientFromEnv())
	default:
		return NewSimulatedProcessor(repo)
	}
}
