package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a vendor listing. Shipping method and free-shipping
// eligibility are configured per product.
type Product struct {
	ID                       uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	VendorID                 uuid.UUID               `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name                     string                  `gorm:"column:name;not null"`
	ShippingFeeMethod        enums.ShippingFeeMethod `gorm:"column:shipping_fee_method;type:text;not null;default:'item'"`
	FreeShippingAllCountries bool                    `gorm:"column:free_shipping_all_countries;not null;default:false"`
	FreeShippingCountries    []ProductFreeShipping   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants                 []ProductVariant        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt                time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt                gorm.DeletedAt          `gorm:"column:deleted_at;index"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductFreeShipping lists a country where a product ships free.
type ProductFreeShipping struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	CountryID uuid.UUID `gorm:"column:country_id;type:uuid;primaryKey"`
}

func (ProductFreeShipping) TableName() string {
	return "product_free_shipping_countries"
}

// ProductVariant is a color/style of a product; weight is per unit in kg.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	WeightKg  decimal.Decimal `gorm:"column:weight_kg;type:numeric(10,3);not null"`
	Sizes     []ProductSize   `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	DeletedAt gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// ProductSize is the purchasable unit: price, discount and stock live here.
type ProductSize struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VariantID       uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;index"`
	Label           string          `gorm:"column:label;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	Quantity        int             `gorm:"column:quantity;not null;default:0"`
	DeletedAt       gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (s *ProductSize) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
