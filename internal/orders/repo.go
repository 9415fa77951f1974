package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateAggregate inserts the order, then its groups, then their items. Ids
// are expected to be assigned already so the links are set before insert.
func (r *repository) CreateAggregate(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if len(order.Groups) == 0 {
		return nil
	}

	var items []models.OrderItem
	for i := range order.Groups {
		order.Groups[i].OrderID = order.ID
		for j := range order.Groups[i].Items {
			order.Groups[i].Items[j].OrderGroupID = order.Groups[i].ID
			items = append(items, order.Groups[i].Items[j])
		}
	}
	if err := db.Omit(clause.Associations).Create(&order.Groups).Error; err != nil {
		return fmt.Errorf("insert order groups: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := db.Create(&items).Error; err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Groups", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Preload("Groups.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser pages through a customer's orders newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Select("id", "order_id") }).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	rows, next := pagination.Window(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, OrderSummary{
			ID:            row.ID,
			CreatedAt:     row.CreatedAt,
			SubTotal:      row.SubTotal,
			ShippingFees:  row.ShippingFees,
			Total:         row.Total,
			Status:        row.Status,
			PaymentStatus: row.PaymentStatus,
			VendorCount:   len(row.Groups),
		})
	}
	return list, nil
}

func (r *repository) FindGroup(ctx context.Context, orderID, groupID uuid.UUID) (*models.OrderGroup, error) {
	var group models.OrderGroup
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", groupID, orderID).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListGroupStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.FulfillmentStatus, error) {
	var statuses []enums.FulfillmentStatus
	err := r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("order_id = ?", orderID).
		Pluck("status", &statuses).Error
	return statuses, err
}

// UpdateGroupStatus moves a group and its items from one status to the next.
// It reports false when the group was no longer in the expected status.
func (r *repository) UpdateGroupStatus(ctx context.Context, groupID uuid.UUID, from, to enums.FulfillmentStatus) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.OrderGroup{}).
		Where("id = ? AND status = ?", groupID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := db.Model(&models.OrderItem{}).
		Where("order_group_id = ? AND status = ?", groupID, from).
		Update("status", to).Error
	return err == nil, err
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}
