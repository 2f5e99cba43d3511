package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	checkoutsvc "github.com/cigarro-in/cigarro-backend/internal/checkout"
	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/types"
)

type checkoutRequest struct {
	TransactionID   uuid.UUID      `json:"transaction_id" validate:"required"`
	ShippingAddress *types.Address `json:"shipping_address" validate:"required"`
	ShippingMethod  string         `json:"shipping_method" validate:"required,oneof=standard express priority"`
	CouponCode      string         `json:"coupon_code,omitempty" validate:"omitempty,max=32"`
	WalletAmount    string         `json:"wallet_amount,omitempty"`

	BuyNow     bool             `json:"buy_now,omitempty"`
	BuyNowItem *buyNowItem      `json:"buy_now_item,omitempty"`
	Retry      bool             `json:"retry,omitempty"`
	PriorOrder *uuid.UUID       `json:"prior_order_id,omitempty"`
}

type buyNowItem struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	ComboID   *uuid.UUID `json:"combo_id,omitempty"`
	Name      string     `json:"name" validate:"required"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
	UnitPrice string     `json:"unit_price" validate:"required"`
}

// Checkout submits one settlement attempt for the caller's cart, buy-now
// item, or retried order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), userID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

// CheckoutConfirmation reports the state of an in-flight payment attempt.
// Clients poll it while the server-side confirmation loop runs.
func CheckoutConfirmation(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed transaction id"))
			return
		}

		status, err := svc.Confirmation(r.Context(), userID, transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, confirmationResponse{
			TransactionID: status.TransactionID,
			OrderID:       status.OrderID,
			Status:        string(status.Status),
			Verified:      status.Verified,
			FailureReason: status.FailureReason,
		})
	}
}

func (p checkoutRequest) toRequest() (checkoutsvc.Request, error) {
	method, err := enums.ParseShippingMethod(p.ShippingMethod)
	if err != nil {
		return checkoutsvc.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}
	req := checkoutsvc.Request{
		TransactionID:   p.TransactionID,
		ShippingAddress: p.ShippingAddress,
		ShippingMethod:  method,
		CouponCode:      validators.SanitizeString(p.CouponCode, 32),
		WalletAmount:    decimal.Zero,
		BuyNow:          p.BuyNow,
		Retry:           p.Retry,
		PriorOrderID:    p.PriorOrder,
	}
	if p.WalletAmount != "" {
		amount, err := decimal.NewFromString(p.WalletAmount)
		if err != nil {
			return req, pkgerrors.New(pkgerrors.CodeValidation, "wallet_amount must be a decimal string")
		}
		req.WalletAmount = amount
	}
	if p.BuyNowItem != nil {
		price, err := decimal.NewFromString(p.BuyNowItem.UnitPrice)
		if err != nil {
			return req, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be a decimal string")
		}
		req.BuyNowItem = &pricing.Line{
			ProductID: p.BuyNowItem.ProductID,
			VariantID: p.BuyNowItem.VariantID,
			ComboID:   p.BuyNowItem.ComboID,
			Name:      p.BuyNowItem.Name,
			Quantity:  p.BuyNowItem.Quantity,
			UnitPrice: price,
		}
	}
	return req, nil
}

type checkoutResponse struct {
	Order        orderResponse    `json:"order"`
	Payment      paymentResponse  `json:"payment"`
	UPI          *upiResponse     `json:"upi,omitempty"`
	AutoComplete bool             `json:"auto_complete"`
}

type paymentResponse struct {
	TransactionID    uuid.UUID `json:"transaction_id"`
	Method           string    `json:"method"`
	Status           string    `json:"status"`
	Amount           string    `json:"amount"`
	WalletAmountUsed string    `json:"wallet_amount_used"`
	RemainingAmount  string    `json:"remaining_amount"`
}

type upiResponse struct {
	Link     string `json:"link"`
	QRBase64 string `json:"qr_base64,omitempty"`
}

type confirmationResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Status        string    `json:"status"`
	Verified      bool      `json:"verified"`
	FailureReason *string   `json:"failure_reason,omitempty"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	resp := checkoutResponse{
		Order:        newOrderResponse(result.Order),
		AutoComplete: result.AutoComplete,
	}
	if result.Attempt != nil {
		resp.Payment = newPaymentResponse(result.Attempt)
	}
	if result.UPI != nil {
		resp.UPI = &upiResponse{
			Link:     result.UPI.Link,
			QRBase64: base64.StdEncoding.EncodeToString(result.UPI.QRPNG),
		}
	}
	return resp
}

func newPaymentResponse(attempt *models.PaymentAttempt) paymentResponse {
	return paymentResponse{
		TransactionID:    attempt.TransactionID,
		Method:           string(attempt.Method),
		Status:           string(attempt.Status),
		Amount:           attempt.Amount.StringFixed(2),
		WalletAmountUsed: attempt.WalletAmountUsed.StringFixed(2),
		RemainingAmount:  attempt.RemainingAmount.StringFixed(2),
	}
}
