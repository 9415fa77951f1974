package cart

import (
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type addItemRequest struct {
	SizeID   string `json:"size_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gt=0,max=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gt=0,max=999"`
}

type cartItemResponse struct {
	ID        uuid.UUID `json:"id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	SizeID    uuid.UUID `json:"size_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cartResponse struct {
	Items []cartsvc.Line `json:"items"`
}

func newCartItemResponse(item *models.CartItem) cartItemResponse {
	if item == nil {
		return cartItemResponse{}
	}
	return cartItemResponse{
		ID:        item.ID,
		VendorID:  item.VendorID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		SizeID:    item.SizeID,
		Quantity:  item.Quantity,
		UpdatedAt: item.UpdatedAt,
	}
}
