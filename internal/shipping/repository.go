package shipping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists vendor shipping defaults and per-country overrides.
type Repository interface {
	RateSource
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	SaveVendorRates(ctx context.Context, vendorID uuid.UUID, rates Rates) error
	FindOverride(ctx context.Context, vendorID, countryID uuid.UUID) (*models.ShippingRateOverride, error)
	ListOverrides(ctx context.Context, vendorID uuid.UUID) ([]models.ShippingRateOverride, error)
	UpsertOverride(ctx context.Context, override *models.ShippingRateOverride) error
	DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipping repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) VendorRates(ctx context.Context, vendorID uuid.UUID) (Rates, error) {
	vendor, err := r.FindVendor(ctx, vendorID)
	if err != nil {
		return Rates{}, err
	}
	return RatesFromVendor(*vendor), nil
}

func (r *repository) OverrideRates(ctx context.Context, vendorID, countryID uuid.UUID) (*Rates, error) {
	override, err := r.FindOverride(ctx, vendorID, countryID)
	if err != nil || override == nil {
		return nil, err
	}
	rates := RatesFromOverride(*override)
	return &rates, nil
}

func (r *repository) SaveVendorRates(ctx context.Context, vendorID uuid.UUID, rates Rates) error {
	var vendor models.Vendor
	rates.applyToVendor(&vendor)
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Select(
			"shipping_service",
			"shipping_fee_per_item",
			"shipping_fee_for_additional_item",
			"shipping_fee_per_kg",
			"shipping_fee_fixed",
			"delivery_time_min",
			"delivery_time_max",
			"return_policy",
			"updated_at",
		).
		Updates(&vendor)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOverride returns nil, nil when no override exists.
func (r *repository) FindOverride(ctx context.Context, vendorID, countryID uuid.UUID) (*models.ShippingRateOverride, error) {
	var override models.ShippingRateOverride
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND country_id = ?", vendorID, countryID).
		First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *repository) ListOverrides(ctx context.Context, vendorID uuid.UUID) ([]models.ShippingRateOverride, error) {
	var overrides []models.ShippingRateOverride
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		Find(&overrides).Error
	return overrides, err
}

func (r *repository) UpsertOverride(ctx context.Context, override *models.ShippingRateOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "country_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"shipping_service",
				"shipping_fee_per_item",
				"shipping_fee_for_additional_item",
				"shipping_fee_per_kg",
				"shipping_fee_fixed",
				"delivery_time_min",
				"delivery_time_max",
				"return_policy",
				"updated_at",
			}),
		}).
		Create(override).Error
}

func (r *repository) DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("vendor_id = ? AND country_id = ?", vendorID, countryID).
		Delete(&models.ShippingRateOverride{})
	return res.RowsAffected > 0, res.Error
}
