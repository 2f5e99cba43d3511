// Package referral handles late attachment of a referral code to a user.
package referral

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Eligibility is the outcome of a pre-attach check.
type Eligibility string

const (
	Eligible        Eligibility = "eligible"
	AlreadyAttached Eligibility = "already_attached"
	Ineligible      Eligibility = "ineligible"
)

// CodeValidation is the outcome of checking a referral code.
type CodeValidation struct {
	Valid        bool
	ReferrerName string
}

// Service exposes referral checks and the attach operation.
type Service interface {
	CheckEligibility(ctx context.Context, userID uuid.UUID) (Eligibility, error)
	ValidateCode(ctx context.Context, code string) (*CodeValidation, error)
	Attach(ctx context.Context, userID uuid.UUID, code string) error
}

type service struct {
	repo Repository
}

// NewService builds the referral service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("referral repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CheckEligibility(ctx context.Context, userID uuid.UUID) (Eligibility, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.ReferredBy != nil {
		return AlreadyAttached, nil
	}
	if user.FirstOrderCompleted {
		return Ineligible, nil
	}
	return Eligible, nil
}

func (s *service) ValidateCode(ctx context.Context, code string) (*CodeValidation, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	referrer, err := s.repo.FindByReferralCode(ctx, code)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return &CodeValidation{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CodeValidation{Valid: true, ReferrerName: referrer.Name}, nil
}

// Attach re-verifies eligibility server-side. A client that believed it was
// eligible can still lose the race; that rejection is a normal outcome
// surfaced as a state conflict.
func (s *service) Attach(ctx context.Context, userID uuid.UUID, code string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	referrer, err := s.repo.FindByReferralCode(ctx, code)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid referral code")
	}
	if err != nil {
		return err
	}
	if referrer.ID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot use your own referral code")
	}

	attached, err := s.repo.AttachReferrer(ctx, userID, referrer.ID)
	if err != nil {
		return err
	}
	if !attached {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "referral already attached or first order completed")
	}
	return nil
}
