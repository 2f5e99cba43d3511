package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/api/middleware"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed user identity")
	}
	return userID, nil
}
