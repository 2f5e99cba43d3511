// Package checkoutctx carries the session-scoped flow flags for a checkout
// attempt: retry markers, buy-now selections, and the drawn goodwill value.
// The engine receives this as an explicit value object; persistence across
// reloads is handled by the redis-backed store in this package.
package checkoutctx

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Context is the flow state of one checkout session.
type Context struct {
	Retry        bool          `json:"retry"`
	PriorOrderID *uuid.UUID    `json:"prior_order_id,omitempty"`
	BuyNow       bool          `json:"buy_now"`
	BuyNowItem   *pricing.Line `json:"buy_now_item,omitempty"`

	// Goodwill is drawn lazily on session start and reused on re-renders.
	// Retries of an existing order ignore it in favor of the recorded value.
	Goodwill *decimal.Decimal `json:"goodwill,omitempty"`
}

// Validate rejects inconsistent flag combinations before the engine runs.
func (c Context) Validate() error {
	if c.Retry && c.BuyNow {
		return pkgerrors.New(pkgerrors.CodeValidation, "retry and buy-now are mutually exclusive")
	}
	if c.Retry && c.PriorOrderID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "retry requested but prior order reference is missing")
	}
	if c.BuyNow && c.BuyNowItem == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buy-now requested without an item")
	}
	return nil
}

// ShouldClearCart reports whether settlement completion empties the
// persistent cart. Buy-now and retry flows never touch it.
func (c Context) ShouldClearCart() bool {
	return !c.Retry && !c.BuyNow
}
