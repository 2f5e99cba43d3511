package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cigarro-in/cigarro-backend/pkg/config"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestPaymentInitiatedPostsPayload(t *testing.T) {
	var received Event
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(config.WebhookConfig{URL: server.URL, Timeout: time.Second}, testLogger())
	require.NoError(t, err)

	event := Event{
		TransactionID:  uuid.New(),
		OrderReference: "CIG-2026-000042",
		Amount:         decimal.RequireFromString("748.63"),
	}
	notifier.PaymentInitiated(context.Background(), event)

	require.Equal(t, 1, calls)
	require.Equal(t, event.TransactionID, received.TransactionID)
	require.Equal(t, "CIG-2026-000042", received.OrderReference)
	require.False(t, received.Timestamp.IsZero())
}

func TestPaymentInitiatedSwallowsDeliveryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // connection refused

	notifier, err := NewWebhookNotifier(config.WebhookConfig{URL: server.URL, Timeout: time.Second}, testLogger())
	require.NoError(t, err)

	// Must not panic or return anything.
	notifier.PaymentInitiated(context.Background(), Event{TransactionID: uuid.New()})
}

func TestEmptyURLIsNoop(t *testing.T) {
	notifier, err := NewWebhookNotifier(config.WebhookConfig{}, testLogger())
	require.NoError(t, err)

	notifier.PaymentInitiated(context.Background(), Event{TransactionID: uuid.New()})
}
