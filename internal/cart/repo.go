package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines the persistence surface required by the cart service
// and the checkout loader.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LoadLines(ctx context.Context, userID uuid.UUID) ([]LineRow, error)
	FreeShippingCountries(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	FindSize(ctx context.Context, sizeID uuid.UUID) (*SizeRef, error)
	FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemBySize(ctx context.Context, userID, sizeID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	DeleteItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LineRow is one cart item left-joined with its catalog rows. A nil catalog
// id means the referenced row is missing or soft deleted.
type LineRow struct {
	CartItemID        uuid.UUID
	UserID            uuid.UUID
	VendorID          uuid.UUID
	ProductID         uuid.UUID
	VariantID         uuid.UUID
	SizeID            uuid.UUID
	Quantity          int
	FoundVendorID     *uuid.UUID
	FoundProductID    *uuid.UUID
	FoundVariantID    *uuid.UUID
	FoundSizeID       *uuid.UUID
	ProductName       *string
	ShippingFeeMethod *string
	FreeShippingAll   *bool
	WeightKg          decimal.NullDecimal
	Price             decimal.NullDecimal
	DiscountPercent   decimal.NullDecimal
	Available         *int
}

// Stale reports whether any referenced catalog row is gone.
func (r LineRow) Stale() bool {
	return r.FoundVendorID == nil || r.FoundProductID == nil || r.FoundVariantID == nil || r.FoundSizeID == nil
}

// SizeRef is a purchasable size with the ids needed to file it in a cart.
type SizeRef struct {
	SizeID    uuid.UUID
	VariantID uuid.UUID
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Quantity  int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LoadLines(ctx context.Context, userID uuid.UUID) ([]LineRow, error) {
	var rows []LineRow
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.id AS cart_item_id, ci.user_id, ci.vendor_id, ci.product_id, ci.variant_id, ci.size_id, ci.quantity,
			vd.id AS found_vendor_id,
			p.id AS found_product_id,
			pv.id AS found_variant_id,
			s.id AS found_size_id,
			p.name AS product_name,
			p.shipping_fee_method AS shipping_fee_method,
			p.free_shipping_all_countries AS free_shipping_all,
			pv.weight_kg AS weight_kg,
			s.price AS price,
			s.discount_percent AS discount_percent,
			s.quantity AS available`).
		Joins("LEFT JOIN vendors vd ON vd.id = ci.vendor_id AND vd.deleted_at IS NULL").
		Joins("LEFT JOIN products p ON p.id = ci.product_id AND p.vendor_id = ci.vendor_id AND p.deleted_at IS NULL").
		Joins("LEFT JOIN product_variants pv ON pv.id = ci.variant_id AND pv.product_id = ci.product_id AND pv.deleted_at IS NULL").
		Joins("LEFT JOIN product_sizes s ON s.id = ci.size_id AND s.variant_id = ci.variant_id AND s.deleted_at IS NULL").
		Where("ci.user_id = ?", userID).
		Order("ci.created_at ASC, ci.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) FreeShippingCountries(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := map[uuid.UUID][]uuid.UUID{}
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.ProductFreeShipping
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], row.CountryID)
	}
	return out, nil
}

func (r *repository) FindSize(ctx context.Context, sizeID uuid.UUID) (*SizeRef, error) {
	var ref SizeRef
	res := r.db.WithContext(ctx).
		Table("product_sizes AS s").
		Select("s.id AS size_id, pv.id AS variant_id, p.id AS product_id, p.vendor_id AS vendor_id, s.quantity AS quantity").
		Joins("JOIN product_variants pv ON pv.id = s.variant_id AND pv.deleted_at IS NULL").
		Joins("JOIN products p ON p.id = pv.product_id AND p.deleted_at IS NULL").
		Joins("JOIN vendors vd ON vd.id = p.vendor_id AND vd.deleted_at IS NULL").
		Where("s.id = ? AND s.deleted_at IS NULL", sizeID).
		Limit(1).
		Scan(&ref)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &ref, nil
}

func (r *repository) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemBySize(ctx context.Context, userID, sizeID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).Where("user_id = ? AND size_id = ?", userID, sizeID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) DeleteItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Delete(&models.CartItem{}).Error
}

// DeleteIdleBefore removes every cart item not touched since cutoff.
func (r *repository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ToLine converts a fully joined row into a pricing line.
func (r LineRow) ToLine(freeCountries []uuid.UUID) Line {
	line := Line{
		CartItemID: r.CartItemID,
		VendorID:   r.VendorID,
		ProductID:  r.ProductID,
		VariantID:  r.VariantID,
		SizeID:     r.SizeID,
		Quantity:   r.Quantity,
	}
	if r.ProductName != nil {
		line.ProductName = *r.ProductName
	}
	if r.ShippingFeeMethod != nil {
		line.FeeMethod = enums.ShippingFeeMethod(*r.ShippingFeeMethod)
	}
	if r.WeightKg.Valid {
		line.UnitWeight = r.WeightKg.Decimal
	}
	if r.Price.Valid {
		line.UnitPrice = r.Price.Decimal
	}
	if r.DiscountPercent.Valid {
		line.DiscountPercent = r.DiscountPercent.Decimal
	}
	if r.Available != nil {
		line.Available = *r.Available
	}
	line.FreeShipping.AllCountries = r.FreeShippingAll != nil && *r.FreeShippingAll
	line.FreeShipping.Countries = freeCountries
	return line
}
