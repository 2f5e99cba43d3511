// Package notify fires best-effort webhook notifications. Delivery failures
// are logged and swallowed; they never fail the operation that emitted them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/pkg/config"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

// Event is the payload sent downstream to trigger email/SMS confirmation.
type Event struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	OrderReference string          `json:"order_reference"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Notifier delivers settlement events.
type Notifier interface {
	PaymentInitiated(ctx context.Context, event Event)
}

type webhookNotifier struct {
	url    string
	client *http.Client
	logg   *logger.Logger
}

// NewWebhookNotifier builds the notifier. An empty URL yields a no-op
// delivery, which keeps local development quiet.
func NewWebhookNotifier(cfg config.WebhookConfig, logg *logger.Logger) (Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webhookNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logg:   logg,
	}, nil
}

func (n *webhookNotifier) PaymentInitiated(ctx context.Context, event Event) {
	if n.url == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	ctx = n.logg.WithTransactionID(ctx, event.TransactionID.String())

	payload, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "marshaling webhook payload", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logg.Error(ctx, "building webhook request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logg.Warn(ctx, "webhook delivery failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.logg.Warn(ctx, fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode))
	}
}
