package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order reads and vendor fulfillment transitions.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateGroupStatus(ctx context.Context, input GroupStatusInput) (*GroupStatusResult, error)
}

// GroupStatusInput carries a vendor's request to move one order group forward.
type GroupStatusInput struct {
	OrderID       uuid.UUID
	GroupID       uuid.UUID
	Status        enums.FulfillmentStatus
	ActorUserID   uuid.UUID
	ActorVendorID *uuid.UUID
	ActorRole     enums.UserRole
}

// GroupStatusResult reports the new group status and the recomputed order status.
type GroupStatusResult struct {
	OrderID        uuid.UUID               `json:"order_id"`
	GroupID        uuid.UUID               `json:"group_id"`
	PreviousStatus enums.FulfillmentStatus `json:"previous_status"`
	Status         enums.FulfillmentStatus `json:"status"`
	OrderStatus    enums.OrderStatus       `json:"order_status"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

// Get returns the full aggregate. Customers only see their own orders.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.Validation("order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) UpdateGroupStatus(ctx context.Context, input GroupStatusInput) (*GroupStatusResult, error) {
	if input.OrderID == uuid.Nil || input.GroupID == uuid.Nil {
		return nil, pkgerrors.Validation("order id and group id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Validation("invalid fulfillment status")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.UserRoleAdmin && input.ActorVendorID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}

	var result *GroupStatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := repo.FindGroup(ctx, input.OrderID, input.GroupID)
		if err != nil {
			return mapOrderErr(err, "load order group")
		}
		if input.ActorRole != enums.UserRoleAdmin && group.VendorID != *input.ActorVendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order group does not belong to vendor")
		}
		if group.Status == input.Status {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order group already in requested status")
		}
		if !group.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment transition not allowed").
				WithDetails(map[string]any{"from": group.Status, "to": input.Status})
		}

		moved, err := repo.UpdateGroupStatus(ctx, group.ID, group.Status, input.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order group status")
		}
		if !moved {
			return pkgerrors.Concurrency("order group changed concurrently")
		}

		statuses, err := repo.ListGroupStatuses(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group statuses")
		}
		orderStatus := enums.DeriveOrderStatus(statuses)
		if err := repo.UpdateOrderStatus(ctx, input.OrderID, orderStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		result = &GroupStatusResult{
			OrderID:        input.OrderID,
			GroupID:        group.ID,
			PreviousStatus: group.Status,
			Status:         input.Status,
			OrderStatus:    orderStatus,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderGroupStatusChanged,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Actor:         buildActor(input.ActorUserID, input.ActorVendorID, input.ActorRole),
			Data: payloads.OrderGroupStatusChangedEvent{
				OrderID:        input.OrderID,
				OrderGroupID:   group.ID,
				VendorID:       group.VendorID,
				PreviousStatus: group.Status,
				Status:         input.Status,
				OrderStatus:    orderStatus,
				ChangedAt:      time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, input.ActorVendorIDString())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_id": result.OrderID.String(),
			"group_id": result.GroupID.String(),
			"from":     result.PreviousStatus,
			"to":       result.Status,
		})
		s.logg.Info(logCtx, "order group status updated")
	}
	return result, nil
}

// ActorVendorIDString renders the acting vendor for log fields.
func (in GroupStatusInput) ActorVendorIDString() string {
	if in.ActorVendorID == nil {
		return ""
	}
	return in.ActorVendorID.String()
}

func mapOrderErr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func buildActor(userID uuid.UUID, vendorID *uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:   userID,
		VendorID: vendorID,
		Role:     string(role),
	}
}
