package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	"github.com/cigarro-in/cigarro-backend/internal/settlement"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

type paymentConfirmRequest struct {
	UPIReference *string `json:"upi_reference,omitempty" validate:"omitempty,max=64"`
}

// PaymentConfirm records an external rail confirmation for a processing
// attempt. The reconciliation gateway calls this; the confirmation loop
// picks the verified flag up on its next poll.
func PaymentConfirm(engine settlement.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed transaction id"))
			return
		}

		var payload paymentConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.ConfirmExternal(r.Context(), transactionID, payload.UPIReference); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "confirmed"})
	}
}
