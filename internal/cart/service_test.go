package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestLinesJoinsCatalogInCartOrder(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	us := dbtest.CreateCountry(t, db, "US", "United States")
	v1 := dbtest.CreateVendor(t, db, "First", nil)
	v2 := dbtest.CreateVendor(t, db, "Second", nil)
	p1 := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: v1.ID, Name: "Mug", Price: "10.00", Stock: 5, FreeCountries: []uuid.UUID{us.ID}})
	p2 := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: v2.ID, Name: "Lamp", Price: "20.00", Discount: "10", WeightKg: "2.5", Method: enums.ShippingFeeMethodWeight, Stock: 1})

	user := uuid.New()
	dbtest.AddToCart(t, db, user, p2, 1)
	dbtest.AddToCart(t, db, user, p1, 2)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	lines, err := svc.Lines(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "Lamp", lines[0].ProductName)
	assert.Equal(t, enums.ShippingFeeMethodWeight, lines[0].FeeMethod)
	assert.True(t, lines[0].UnitWeight.Equal(dbtest.Dec("2.5")))
	assert.True(t, lines[0].DiscountPercent.Equal(dbtest.Dec("10")))
	assert.Equal(t, 1, lines[0].Available)

	assert.Equal(t, v1.ID, lines[1].VendorID)
	assert.Equal(t, 2, lines[1].Quantity)
	assert.True(t, lines[1].UnitPrice.Equal(dbtest.Dec("10")))
	assert.True(t, lines[1].FreeShipping.Eligible(us.ID))
}

func TestLinesRejectsEmptyAndStaleCarts(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	user := uuid.New()
	_, err = svc.Lines(ctx, user)
	require.Error(t, err)
	assert.Equal(t, "cart empty", pkgerrors.As(err).Message())

	vendor := dbtest.CreateVendor(t, db, "Gone", nil)
	p := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: vendor.ID, Price: "3.00", Stock: 3})
	dbtest.AddToCart(t, db, user, p, 1)
	require.NoError(t, db.Delete(&models.ProductSize{}, "id = ?", p.Size.ID).Error)

	_, err = svc.Lines(ctx, user)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, "stale cart line", pkgerrors.As(err).Message())
}

func TestLinesRejectsDeletedVendor(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	user := uuid.New()
	vendor := dbtest.CreateVendor(t, db, "Closed", nil)
	p := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: vendor.ID, Price: "3.00", Stock: 3})
	dbtest.AddToCart(t, db, user, p, 1)
	require.NoError(t, db.Delete(&models.Vendor{}, "id = ?", vendor.ID).Error)

	_, err = svc.Lines(context.Background(), user)
	require.Error(t, err)
	assert.Equal(t, "stale cart line", pkgerrors.As(err).Message())
}

func TestAddItemMergesQuantityAndChecksStock(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	vendor := dbtest.CreateVendor(t, db, "Shop", nil)
	p := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: vendor.ID, Price: "3.00", Stock: 3})
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	user := uuid.New()

	item, err := svc.AddItem(ctx, user, AddItemInput{SizeID: p.Size.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, item.VendorID)

	merged, err := svc.AddItem(ctx, user, AddItemInput{SizeID: p.Size.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, item.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)

	_, err = svc.AddItem(ctx, user, AddItemInput{SizeID: p.Size.ID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	_, err = svc.AddItem(ctx, user, AddItemInput{SizeID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, user, AddItemInput{SizeID: p.Size.ID, Quantity: 0})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	vendor := dbtest.CreateVendor(t, db, "Shop", nil)
	p := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: vendor.ID, Price: "3.00", Stock: 4})
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	user := uuid.New()
	item := dbtest.AddToCart(t, db, user, p, 1)

	require.NoError(t, svc.UpdateItem(ctx, user, item.ID, 4))
	err = svc.UpdateItem(ctx, user, item.ID, 5)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	err = svc.UpdateItem(ctx, uuid.New(), item.ID, 1)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "other users cannot touch the line")

	require.NoError(t, svc.RemoveItem(ctx, user, item.ID))
	err = svc.RemoveItem(ctx, user, item.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestRepositoryDeleteIdleBefore(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	vendor := dbtest.CreateVendor(t, db, "Shop", nil)
	p := dbtest.CreateProduct(t, db, dbtest.ProductFixture{VendorID: vendor.ID, Price: "3.00", Stock: 4})
	stale := dbtest.AddToCart(t, db, uuid.New(), p, 1)
	fresh := dbtest.AddToCart(t, db, uuid.New(), p, 1)

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.CartItem{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", cutoff.Add(-time.Hour)).Error)

	deleted, err := NewRepository(db).DeleteIdleBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []models.CartItem
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
