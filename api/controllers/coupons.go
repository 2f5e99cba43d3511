package controllers

import (
	"net/http"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	"github.com/cigarro-in/cigarro-backend/internal/discount"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

type couponValidateRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type couponValidateResponse struct {
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Title    string `json:"title,omitempty"`
	Discount string `json:"discount,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ValidateCoupon checks a code before checkout. An unknown code is a normal
// negative result, not an error.
func ValidateCoupon(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.ValidateCoupon(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := couponValidateResponse{
			Valid:   validation.Valid,
			Message: validation.Message,
		}
		if validation.Valid {
			resp.Code = validation.Code
			resp.Title = validation.Title
			resp.Discount = validation.Discount.StringFixed(2)
		}
		responses.WriteSuccess(w, resp)
	}
}
