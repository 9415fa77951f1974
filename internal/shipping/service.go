package shipping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type countryLookup interface {
	Exists(ctx context.Context, countryID uuid.UUID) (bool, error)
}

// VendorShipping is the admin view of a vendor's configured layers.
type VendorShipping struct {
	VendorID  uuid.UUID           `json:"vendor_id"`
	Defaults  Rates               `json:"defaults"`
	Overrides map[uuid.UUID]Rates `json:"overrides"`
}

// Service edits vendor shipping configuration and previews resolution.
// Every edit invalidates the vendor's cached layers.
type Service interface {
	Get(ctx context.Context, vendorID uuid.UUID) (*VendorShipping, error)
	UpdateDefaults(ctx context.Context, vendorID uuid.UUID, rates Rates) error
	PutOverride(ctx context.Context, vendorID, countryID uuid.UUID, rates Rates) error
	DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) error
	Preview(ctx context.Context, vendorID, countryID uuid.UUID) (*Resolution, error)
}

type service struct {
	repo      Repository
	resolver  *Resolver
	countries countryLookup
	logg      *logger.Logger
}

// NewService builds the shipping admin service.
func NewService(repo Repository, resolver *Resolver, countries countryLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("shipping repository required")
	}
	if resolver == nil {
		return nil, errors.New("rate resolver required")
	}
	if countries == nil {
		return nil, errors.New("country lookup required")
	}
	return &service{repo: repo, resolver: resolver, countries: countries, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, vendorID uuid.UUID) (*VendorShipping, error) {
	vendor, err := s.repo.FindVendor(ctx, vendorID)
	if err != nil {
		return nil, mapVendorErr(err)
	}
	overrides, err := s.repo.ListOverrides(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping overrides")
	}
	out := &VendorShipping{
		VendorID:  vendorID,
		Defaults:  RatesFromVendor(*vendor),
		Overrides: make(map[uuid.UUID]Rates, len(overrides)),
	}
	for _, o := range overrides {
		out.Overrides[o.CountryID] = RatesFromOverride(o)
	}
	return out, nil
}

func (s *service) UpdateDefaults(ctx context.Context, vendorID uuid.UUID, rates Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveVendorRates(ctx, vendorID, rates); err != nil {
		return mapVendorErr(err)
	}
	s.invalidate(ctx, vendorID)
	return nil
}

func (s *service) PutOverride(ctx context.Context, vendorID, countryID uuid.UUID, rates Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	if rates.IsEmpty() {
		return pkgerrors.Validation("override must set at least one field")
	}
	if _, err := s.repo.FindVendor(ctx, vendorID); err != nil {
		return mapVendorErr(err)
	}
	ok, err := s.countries.Exists(ctx, countryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load country")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
	}

	override := rates.toOverride(vendorID, countryID)
	if err := s.repo.UpsertOverride(ctx, &override); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shipping override")
	}
	s.invalidate(ctx, vendorID)
	return nil
}

func (s *service) DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) error {
	deleted, err := s.repo.DeleteOverride(ctx, vendorID, countryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete shipping override")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shipping override not found")
	}
	s.invalidate(ctx, vendorID)
	return nil
}

func (s *service) Preview(ctx context.Context, vendorID, countryID uuid.UUID) (*Resolution, error) {
	ok, err := s.countries.Exists(ctx, countryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load country")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
	}
	res, err := s.resolver.ResolveWithFallback(ctx, vendorID, countryID)
	if err != nil {
		return nil, mapVendorErr(err)
	}
	return &res, nil
}

func (s *service) invalidate(ctx context.Context, vendorID uuid.UUID) {
	if err := s.resolver.Invalidate(ctx, vendorID); err != nil && s.logg != nil {
		ctx = s.logg.WithVendorID(ctx, vendorID.String())
		s.logg.Error(ctx, "failed to invalidate shipping rate cache", err)
	}
}

func mapVendorErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
}
