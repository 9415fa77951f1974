package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrCartEmpty is returned when checkout or quote runs on an empty cart.
var ErrCartEmpty = pkgerrors.Validation("cart empty")

// Service exposes cart operations.
type Service interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]Line, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

// AddItemInput identifies the size to add and the quantity.
type AddItemInput struct {
	SizeID   uuid.UUID
	Quantity int
}

type service struct {
	repo Repository
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// Lines loads the user's cart in cart order. Any line whose vendor, product,
// variant or size is gone rejects the whole cart.
func (s *service) Lines(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.Validation("user id is required")
	}
	rows, err := s.repo.LoadLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(rows) == 0 {
		return nil, ErrCartEmpty
	}

	productIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if row.Stale() {
			return nil, pkgerrors.Validation("stale cart line").WithDetails(map[string]any{
				"cart_item_id": row.CartItemID,
				"product_id":   row.ProductID,
				"size_id":      row.SizeID,
			})
		}
		if _, ok := seen[row.ProductID]; !ok {
			seen[row.ProductID] = struct{}{}
			productIDs = append(productIDs, row.ProductID)
		}
	}

	free, err := s.repo.FreeShippingCountries(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load free shipping countries")
	}

	lines := make([]Line, len(rows))
	for i, row := range rows {
		lines[i] = row.ToLine(free[row.ProductID])
	}
	return lines, nil
}

// AddItem adds a size to the cart, merging with an existing line for the
// same size. Stock is checked against the merged quantity.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.Validation("user id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.Validation("quantity must be at least 1")
	}

	size, err := s.repo.FindSize(ctx, input.SizeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "size not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size")
	}

	existing, err := s.repo.FindItemBySize(ctx, userID, input.SizeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	want := input.Quantity
	if existing != nil {
		want += existing.Quantity
	}
	if want > size.Quantity {
		return nil, pkgerrors.Concurrency("requested quantity exceeds available stock").WithDetails(map[string]any{
			"size_id":   size.SizeID,
			"available": size.Quantity,
			"requested": want,
		})
	}

	if existing != nil {
		if err := s.repo.UpdateQuantity(ctx, userID, existing.ID, want); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		existing.Quantity = want
		return existing, nil
	}

	item := &models.CartItem{
		UserID:    userID,
		VendorID:  size.VendorID,
		ProductID: size.ProductID,
		VariantID: size.VariantID,
		SizeID:    size.SizeID,
		Quantity:  want,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "ux_cart_items_user_size") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "item already in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.Validation("quantity must be at least 1")
	}
	item, err := s.repo.FindItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	size, err := s.repo.FindSize(ctx, item.SizeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Validation("stale cart line")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size")
	}
	if qty > size.Quantity {
		return pkgerrors.Concurrency("requested quantity exceeds available stock").WithDetails(map[string]any{
			"size_id":   size.SizeID,
			"available": size.Quantity,
			"requested": qty,
		})
	}
	if err := s.repo.UpdateQuantity(ctx, userID, itemID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.DeleteItem(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}
