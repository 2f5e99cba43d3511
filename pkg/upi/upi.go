// Package upi builds UPI payment intents for the external settlement rail.
package upi

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cigarro-in/cigarro-backend/pkg/config"
)

// Intent is a ready-to-render payment request for the remaining amount of a
// settlement. Link opens any UPI app; QRPNG is the same link as a QR code.
type Intent struct {
	Link   string
	QRPNG  []byte
	Amount decimal.Decimal
}

// Builder formats deep links for a single payee account.
type Builder struct {
	payeeVPA  string
	payeeName string
	currency  string
}

// NewBuilder validates the payee configuration.
func NewBuilder(cfg config.UPIConfig) (*Builder, error) {
	if cfg.PayeeVPA == "" {
		return nil, fmt.Errorf("payee VPA is required")
	}
	if cfg.PayeeName == "" {
		return nil, fmt.Errorf("payee name is required")
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Builder{
		payeeVPA:  cfg.PayeeVPA,
		payeeName: cfg.PayeeName,
		currency:  currency,
	}, nil
}

// Link formats the upi://pay deep link. The transaction note carries both the
// human display ID and the settlement transaction ID so bank statements can
// be reconciled against either.
func (b *Builder) Link(displayID string, transactionID uuid.UUID, amount decimal.Decimal) (string, error) {
	if displayID == "" {
		return "", fmt.Errorf("displayID is required")
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("amount must be positive, got %s", amount)
	}

	q := url.Values{}
	q.Set("pa", b.payeeVPA)
	q.Set("pn", b.payeeName)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", b.currency)
	q.Set("tn", fmt.Sprintf("%s|%s", displayID, transactionID))

	return "upi://pay?" + q.Encode(), nil
}

// Intent builds the deep link plus its QR code PNG.
func (b *Builder) Intent(displayID string, transactionID uuid.UUID, amount decimal.Decimal) (*Intent, error) {
	link, err := b.Link(displayID, transactionID, amount)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	return &Intent{
		Link:   link,
		QRPNG:  png,
		Amount: amount,
	}, nil
}
