package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CreateCountry inserts a destination country.
func CreateCountry(t testing.TB, db *gorm.DB, code, name string) models.Country {
	t.Helper()
	country := models.Country{Code: code, Name: name}
	if err := db.Create(&country).Error; err != nil {
		t.Fatalf("create country: %v", err)
	}
	return country
}

// CreateVendor inserts a vendor; configure may set shipping defaults.
func CreateVendor(t testing.TB, db *gorm.DB, name string, configure func(*models.Vendor)) models.Vendor {
	t.Helper()
	vendor := models.Vendor{
		OwnerUserID: uuid.New(),
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + uuid.NewString()[:8],
	}
	if configure != nil {
		configure(&vendor)
	}
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

// ProductFixture describes a single-variant, single-size product.
type ProductFixture struct {
	VendorID      uuid.UUID
	Name          string
	Method        enums.ShippingFeeMethod
	Price         string
	Discount      string
	WeightKg      string
	Stock         int
	FreeAll       bool
	FreeCountries []uuid.UUID
}

// SeededProduct holds the rows created for a ProductFixture.
type SeededProduct struct {
	Product models.Product
	Variant models.ProductVariant
	Size    models.ProductSize
}

// CreateProduct inserts a product with one variant and one size.
func CreateProduct(t testing.TB, db *gorm.DB, f ProductFixture) SeededProduct {
	t.Helper()
	if f.Method == "" {
		f.Method = enums.ShippingFeeMethodItem
	}
	if f.Discount == "" {
		f.Discount = "0"
	}
	if f.WeightKg == "" {
		f.WeightKg = "1"
	}
	if f.Name == "" {
		f.Name = "product"
	}

	product := models.Product{
		VendorID:                 f.VendorID,
		Name:                     f.Name,
		ShippingFeeMethod:        f.Method,
		FreeShippingAllCountries: f.FreeAll,
	}
	if err := db.Omit("Variants", "FreeShippingCountries").Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, countryID := range f.FreeCountries {
		row := models.ProductFreeShipping{ProductID: product.ID, CountryID: countryID}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("create free shipping country: %v", err)
		}
	}
	variant := models.ProductVariant{
		ProductID: product.ID,
		Name:      "default",
		WeightKg:  decimal.RequireFromString(f.WeightKg),
	}
	if err := db.Omit("Sizes").Create(&variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	size := models.ProductSize{
		VariantID:       variant.ID,
		Label:           "one-size",
		Price:           decimal.RequireFromString(f.Price),
		DiscountPercent: decimal.RequireFromString(f.Discount),
		Quantity:        f.Stock,
	}
	if err := db.Create(&size).Error; err != nil {
		t.Fatalf("create size: %v", err)
	}
	return SeededProduct{Product: product, Variant: variant, Size: size}
}

// AddToCart inserts a cart line for userID.
func AddToCart(t testing.TB, db *gorm.DB, userID uuid.UUID, p SeededProduct, qty int) models.CartItem {
	t.Helper()
	item := models.CartItem{
		UserID:    userID,
		VendorID:  p.Product.VendorID,
		ProductID: p.Product.ID,
		VariantID: p.Variant.ID,
		SizeID:    p.Size.ID,
		Quantity:  qty,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	return item
}

// Dec parses a decimal literal.
func Dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

// NullDec parses a decimal literal into a set NullDecimal.
func NullDec(raw string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(raw))
}
