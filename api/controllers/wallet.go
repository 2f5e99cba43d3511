package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	"github.com/cigarro-in/cigarro-backend/internal/wallet"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

// WalletBalance returns the caller's snapshot balance. The settlement
// procedure re-checks the live balance, so this is only a quote.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"balance":  balance.StringFixed(2),
			"currency": "INR",
		})
	}
}

type walletTopUpRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" validate:"required"`
	Amount        string    `json:"amount" validate:"required"`
}

// WalletTopUpVerify credits a confirmed top-up, keyed by transaction id so
// gateway retries land on the same entry.
func WalletTopUpVerify(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload walletTopUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed amount"))
			return
		}

		if err := svc.VerifyTopUp(r.Context(), userID, payload.TransactionID, amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "credited"})
	}
}
