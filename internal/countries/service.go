package countries

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes country lookups with storefront error codes.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Country, error)
	GetByCode(ctx context.Context, code string) (*models.Country, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]models.Country, error)
}

type service struct {
	repo Repository
}

// NewService builds the country service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("countries repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Country, error) {
	country, err := s.repo.FindByID(ctx, id)
	return country, mapErr(err)
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Country, error) {
	if len(code) != 2 {
		return nil, pkgerrors.Validation("country code must be a 2-letter ISO code")
	}
	country, err := s.repo.FindByCode(ctx, code)
	return country, mapErr(err)
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load country")
	}
	return ok, nil
}

func (s *service) List(ctx context.Context) ([]models.Country, error) {
	countries, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list countries")
	}
	return countries, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load country")
}
