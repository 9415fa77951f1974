package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAggregate(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	FindGroup(ctx context.Context, orderID, groupID uuid.UUID) (*models.OrderGroup, error)
	ListGroupStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.FulfillmentStatus, error)
	UpdateGroupStatus(ctx context.Context, groupID uuid.UUID, from, to enums.FulfillmentStatus) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}
