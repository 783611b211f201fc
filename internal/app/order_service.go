package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/domain"
)

type OrderService struct {
	orders    OrderRepository
	catalog   CatalogRepository
	publisher EventPublisher
	clock     clock.Clock
	logger    *log.Logger
}

type OrderOption func(*OrderService)

func WithOrderLogger(logger *log.Logger) OrderOption {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewOrderService(orders OrderRepository, catalog CatalogRepository, publisher EventPublisher, clk clock.Clock, opts ...OrderOption) *OrderService {
	s := &OrderService{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		clock:     clk,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PlaceOrderInput struct {
	DeviceID    string
	ServiceID   string
	AmountCents int
}

// PlaceOrder creates a CREATED order for an active service. A zero amount
// charges the service price.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if in.DeviceID == "" || in.ServiceID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	if in.AmountCents < 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}
	if _, err := s.catalog.GetDevice(ctx, in.DeviceID); err != nil {
		return domain.Order{}, err
	}
	service, err := s.catalog.GetService(ctx, in.DeviceID, in.ServiceID)
	if err != nil {
		return domain.Order{}, err
	}
	if !service.Active {
		return domain.Order{}, domain.ErrServiceInactive
	}

	amount := in.AmountCents
	if amount == 0 {
		amount = service.PriceCents
	}
	now := s.clock.Now()
	order := domain.Order{
		ID:                uuid.NewString(),
		DeviceID:          in.DeviceID,
		ServiceID:         service.ID,
		ServiceType:       service.Type,
		AmountCents:       amount,
		AuthorizedSeconds: service.AuthorizedSeconds(amount),
		Status:            domain.OrderStatusCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.orders.GetOrder(ctx, orderID)
}

// Transition applies one lifecycle step and publishes the resulting event
// once the change is committed.
func (s *OrderService) Transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
	if !to.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}
	var (
		order domain.Order
		event domain.OrderEvent
	)
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orders.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		event, err = applyTransition(txCtx, s.orders, &order, to, s.clock.Now())
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	publishOrderEvents(ctx, s.publisher, s.logger, event)
	return order, nil
}

// applyTransition validates and persists one step inside the caller's transaction.
func applyTransition(ctx context.Context, orders OrderRepository, order *domain.Order, to domain.OrderStatus, now time.Time) (domain.OrderEvent, error) {
	prev := *order
	event, err := order.Transition(to, now)
	if err != nil {
		return domain.OrderEvent{}, err
	}
	if err := orders.UpdateOrderStatus(ctx, order.ID, prev.Status, to, now); err != nil {
		*order = prev
		return domain.OrderEvent{}, err
	}
	return event, nil
}

func publishOrderEvents(ctx context.Context, publisher EventPublisher, logger *log.Logger, evts ...domain.OrderEvent) {
	if publisher == nil {
		return
	}
	for _, e := range evts {
		if err := publisher.PublishOrderEvent(ctx, e); err != nil {
			logger.Printf("WARN: publish order event order_id=%s to=%s err=%v", e.OrderID, e.To, err)
		}
	}
}
