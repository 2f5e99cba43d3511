package referral

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

type stubUserRepo struct {
	users    map[uuid.UUID]*models.User
	byCode   map[string]*models.User
	attached bool
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserRepo) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	if u, ok := s.byCode[code]; ok {
		return u, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
}

func (s *stubUserRepo) AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error) {
	return s.attached, nil
}

func (s *stubUserRepo) MarkFirstOrderCompleted(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func TestCheckEligibility(t *testing.T) {
	referrerID := uuid.New()
	cases := []struct {
		name string
		user models.User
		want Eligibility
	}{
		{"fresh user", models.User{}, Eligible},
		{"already attached", models.User{ReferredBy: &referrerID}, AlreadyAttached},
		{"attached and completed", models.User{ReferredBy: &referrerID, FirstOrderCompleted: true}, AlreadyAttached},
		{"first order done", models.User{FirstOrderCompleted: true}, Ineligible},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := uuid.New()
			user := tc.user
			user.ID = id
			repo := &stubUserRepo{users: map[uuid.UUID]*models.User{id: &user}}
			svc, err := NewService(repo)
			if err != nil {
				t.Fatalf("new service: %v", err)
			}

			got, err := svc.CheckEligibility(context.Background(), id)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if got != tc.want {
				t.Fatalf("eligibility = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAttachRejectsSelfReferral(t *testing.T) {
	id := uuid.New()
	repo := &stubUserRepo{
		byCode: map[string]*models.User{"SELF01": {ID: id, ReferralCode: "SELF01"}},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Attach(context.Background(), id, "SELF01")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAttachRejectsUnknownCode(t *testing.T) {
	repo := &stubUserRepo{byCode: map[string]*models.User{}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Attach(context.Background(), uuid.New(), "NOPE")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAttachSurfacesLostRaceAsStateConflict(t *testing.T) {
	repo := &stubUserRepo{
		byCode:   map[string]*models.User{"ASHA01": {ID: uuid.New(), ReferralCode: "ASHA01"}},
		attached: false,
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Attach(context.Background(), uuid.New(), "ASHA01")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestValidateCode(t *testing.T) {
	repo := &stubUserRepo{
		byCode: map[string]*models.User{"ASHA01": {ID: uuid.New(), Name: "Asha", ReferralCode: "ASHA01"}},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.ValidateCode(context.Background(), "ASHA01")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !got.Valid || got.ReferrerName != "Asha" {
		t.Fatalf("unexpected validation %+v", got)
	}

	got, err = svc.ValidateCode(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Valid {
		t.Fatal("expected invalid result for unknown code")
	}
}
