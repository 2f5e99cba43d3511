package controllers

import (
	"net/http"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	"github.com/cigarro-in/cigarro-backend/internal/referral"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

// ReferralEligibility reports whether the caller can still attach a
// referral code. Attach re-verifies server-side, so this is advisory.
func ReferralEligibility(svc referral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eligibility, err := svc.CheckEligibility(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"eligibility": string(eligibility)})
	}
}

type referralAttachRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// ReferralAttach links a referrer to the caller's account.
func ReferralAttach(svc referral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload referralAttachRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Attach(r.Context(), userID, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "attached"})
	}
}
