package coupons

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository reads coupons and tracks their usage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, vendorID uuid.UUID, code string) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCode prefers the coupon owned by vendorID and otherwise returns
// another vendor's coupon with the same code, which Validate rejects as a
// vendor mismatch. It returns nil, nil when no vendor has the code.
func (r *repository) FindByCode(ctx context.Context, vendorID uuid.UUID, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN vendor_id = ? THEN 0 ELSE 1 END",
			Vars: []any{vendorID},
		}}).
		Take(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage bumps used_count unless the cap is already reached. It
// reports false when the coupon ran out between validation and commit.
func (r *repository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
