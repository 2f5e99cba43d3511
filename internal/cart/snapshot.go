// Package cart loads cart snapshots for checkout and applies the clearing
// policy after settlement.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Service exposes the snapshot read and the clearing policy write.
type Service interface {
	Snapshot(ctx context.Context, userID uuid.UUID) ([]pricing.Line, error)
	ClearActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService builds the cart service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// Snapshot reads the active cart and freezes it into line items. The
// snapshot is immutable from here on; later cart edits do not affect an
// in-flight checkout.
func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) ([]pricing.Line, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]pricing.Line, 0, len(record.Items))
	for _, item := range record.Items {
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			ComboID:   item.ComboID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines, nil
}

func (s *service) ClearActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ClearActive(ctx, userID)
}
