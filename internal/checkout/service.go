package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithCheckoutTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service composes and places multivendor orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
	Checkout(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

// Input is the customer's checkout request.
type Input struct {
	CountryID       uuid.UUID
	ShippingAddress *types.Address
	// Coupons maps vendor id to the coupon code entered for that vendor.
	Coupons map[uuid.UUID]string
}

// Result is a composed order plus the warnings raised while building it.
// Placed is false for quotes.
type Result struct {
	Order    *orders.OrderDetail    `json:"order"`
	Warnings types.CheckoutWarnings `json:"warnings"`
	Placed   bool                   `json:"placed"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Loader  *Loader
	Tx      txRunner
	Orders  orders.Repository
	Coupons coupons.Repository
	Cart    cart.Repository
	Outbox  outboxPublisher
	Metrics *metrics.CheckoutMetrics
	Config  config.CheckoutConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	loader  *Loader
	tx      txRunner
	orders  orders.Repository
	coupons coupons.Repository
	cart    cart.Repository
	outbox  outboxPublisher
	metrics *metrics.CheckoutMetrics
	cfg     config.CheckoutConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Loader == nil {
		return nil, fmt.Errorf("checkout loader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.MaxAttempts < 1 {
		params.Config.MaxAttempts = 1
	}
	if params.Config.RetryBaseDelay <= 0 {
		params.Config.RetryBaseDelay = 50 * time.Millisecond
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		loader:  params.Loader,
		tx:      params.Tx,
		orders:  params.Orders,
		coupons: params.Coupons,
		cart:    params.Cart,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Quote prices the cart without writing anything.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if err := validateInput(userID, input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID, "country_id": input.CountryID})

	comp, err := s.compose(ctx, userID, input, nil)
	if err != nil {
		return nil, err
	}
	s.reportWarnings(ctx, comp.Warnings)
	return &Result{Order: orders.NewOrderDetail(comp.Order), Warnings: comp.Warnings}, nil
}

// Checkout places the order. Each attempt reloads the cart, stock and rates
// and runs inside one bounded transaction; attempts that fail on a timeout
// or a transient database error are retried from the start.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	start := time.Now()
	if err := validateInput(userID, input); err != nil {
		s.metrics.Observe(metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID, "country_id": input.CountryID})

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), retry.NewExponential(s.cfg.RetryBaseDelay))
	if s.cfg.RetryMaxDelay > 0 {
		backoff = retry.WithCappedDuration(s.cfg.RetryMaxDelay, backoff)
	}

	result, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*Result, error) {
		attempt++
		if attempt > 1 {
			s.metrics.IncRetry()
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "retrying checkout after transient failure")
		}
		res, err := s.attempt(ctx, userID, input)
		if err != nil && isRetryable(err) {
			return nil, retry.RetryableError(err)
		}
		return res, err
	})
	if err != nil {
		if isRetryable(err) {
			err = pkgerrors.Persistence(err, "checkout could not be committed")
		}
		s.metrics.Observe(outcomeFor(err), time.Since(start))
		return nil, err
	}

	s.metrics.Observe(metrics.OutcomeSuccess, time.Since(start))
	s.reportWarnings(ctx, result.Warnings)
	s.logg.Info(s.logg.WithCheckoutID(ctx, result.Order.ID.String()), "checkout placed")
	return result, nil
}

func (s *service) attempt(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	exhausted := map[uuid.UUID]bool{}
	for {
		comp, err := s.compose(ctx, userID, input, exhausted)
		if err != nil {
			return nil, err
		}

		err = s.persist(ctx, userID, comp)
		var capped *couponCappedError
		if errors.As(err, &capped) {
			// Retry the same composition without the coupon that ran out.
			exhausted[capped.vendorID] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Result{Order: orders.NewOrderDetail(comp.Order), Warnings: comp.Warnings, Placed: true}, nil
	}
}

func (s *service) compose(ctx context.Context, userID uuid.UUID, input Input, exhausted map[uuid.UUID]bool) (*Composition, error) {
	snap, err := s.loader.Load(ctx, userID, input.CountryID, input.Coupons)
	if err != nil {
		return nil, err
	}
	partition, err := cart.Split(snap.Lines, snap.Destination, snap.Rates)
	if err != nil {
		return nil, err
	}
	comp, err := Compose(ComposeInput{
		UserID:    userID,
		CountryID: input.CountryID,
		Address:   input.ShippingAddress,
		Partition: partition,
		Requested: input.Coupons,
		Coupons:   snap.Coupons,
		Exhausted: exhausted,
		Now:       s.now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compose order")
	}
	return comp, nil
}

type couponCappedError struct {
	vendorID uuid.UUID
	code     string
}

func (e *couponCappedError) Error() string {
	return fmt.Sprintf("coupon %q for vendor %s reached its usage limit", e.code, e.vendorID)
}

func (s *service) persist(ctx context.Context, userID uuid.UUID, comp *Composition) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout())
	defer cancel()

	return s.tx.WithCheckoutTx(txCtx, func(tx *gorm.DB) error {
		if err := reservation.DecrementStock(txCtx, tx, comp.Stock); err != nil {
			return err
		}
		for _, c := range comp.Coupons {
			ok, err := s.coupons.WithTx(tx).IncrementUsage(txCtx, c.CouponID)
			if err != nil {
				return err
			}
			if !ok {
				return &couponCappedError{vendorID: c.VendorID, code: c.Code}
			}
		}
		if err := s.orders.WithTx(tx).CreateAggregate(txCtx, comp.Order); err != nil {
			return err
		}
		if err := s.cart.WithTx(tx).DeleteItems(txCtx, userID, comp.CartItemIDs); err != nil {
			return err
		}
		return s.outbox.Emit(txCtx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   comp.Order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data:          orderCreatedPayload(comp),
		})
	})
}

func (s *service) txTimeout() time.Duration {
	if s.cfg.TxTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.TxTimeout
}

func (s *service) reportWarnings(ctx context.Context, warnings types.CheckoutWarnings) {
	for _, w := range warnings {
		s.metrics.IncWarning(string(w.Code))
	}
	if err := warnings.Err(); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "warning_count", len(warnings)), "checkout completed with warnings", err)
	}
}

func orderCreatedPayload(comp *Composition) payloads.OrderCreatedEvent {
	order := comp.Order
	event := payloads.OrderCreatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		CountryID: order.CountryID,
		Total:     order.Total,
		Status:    order.Status,
		PlacedAt:  order.CreatedAt,
	}
	for _, g := range order.Groups {
		event.Groups = append(event.Groups, payloads.OrderGroupRef{
			OrderGroupID: g.ID,
			VendorID:     g.VendorID,
			ShippingFee:  g.ShippingFees,
			Total:        g.Total,
			ItemCount:    len(g.Items),
		})
	}
	for _, c := range comp.Coupons {
		event.CouponCodes = append(event.CouponCodes, c.Code)
	}
	return event
}

func validateInput(userID uuid.UUID, input Input) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if input.CountryID == uuid.Nil {
		return pkgerrors.Validation("country_id is required")
	}
	return nil
}

func isRetryable(err error) bool {
	return db.IsTransient(err)
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeConflict):
		return metrics.OutcomeConflict
	case pkgerrors.Is(err, pkgerrors.CodeValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeFailure
	}
}
