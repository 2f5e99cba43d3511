package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

const userIDHeader = "X-User-Id"

// Identity resolves the caller from the X-User-Id header set by the upstream
// gateway. Authentication itself happens there; this layer only requires a
// well-formed identifier.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(userIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity"))
				return
			}
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed user identity"))
				return
			}

			ctx := WithUserID(r.Context(), userID.String())
			if logg != nil {
				ctx = logg.WithField(ctx, "user_id", userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
