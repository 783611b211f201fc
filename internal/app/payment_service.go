package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/domain"
)

// PaymentFeedbackDuration is how long the red light stays on after a declined payment.
const PaymentFeedbackDuration = 10 * time.Second

type PaymentService struct {
	orders    OrderRepository
	auths     *AuthorizationService
	activator Activator
	publisher EventPublisher
	clock     clock.Clock
	enabled   bool
	logger    *log.Logger
}

type PaymentOption func(*PaymentService)

// WithMockPayments enables the simulated payment endpoint.
func WithMockPayments(enabled bool) PaymentOption {
	return func(s *PaymentService) {
		s.enabled = enabled
	}
}

func WithPaymentLogger(logger *log.Logger) PaymentOption {
	return func(s *PaymentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewPaymentService(orders OrderRepository, auths *AuthorizationService, activator Activator, publisher EventPublisher, clk clock.Clock, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		orders:    orders,
		auths:     auths,
		activator: activator,
		publisher: publisher,
		clock:     clk,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type MockPaymentInput struct {
	OrderID string
	Success bool
}

type PaymentResult struct {
	Success       bool
	Order         domain.Order
	Authorization *domain.Authorization
	LEDTriggered  bool
}

// ProcessMockPayment settles a CREATED order. On success the order becomes PAID
// and its authorization is issued in the same transaction, so a failed issuance
// leaves the order CREATED. The LED result never affects the ledger outcome.
func (s *PaymentService) ProcessMockPayment(ctx context.Context, in MockPaymentInput) (PaymentResult, error) {
	if !s.enabled {
		return PaymentResult{}, domain.ErrMockPaymentDisabled
	}
	if in.OrderID == "" {
		return PaymentResult{}, domain.ErrInvalidID
	}

	to := domain.OrderStatusFailed
	if in.Success {
		to = domain.OrderStatusPaid
	}

	var (
		order domain.Order
		event domain.OrderEvent
		auth  *domain.Authorization
	)
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orders.GetOrder(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusCreated {
			return fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidState, order.Status, domain.OrderStatusCreated)
		}
		event, err = applyTransition(txCtx, s.orders, &order, to, s.clock.Now())
		if err != nil {
			return err
		}
		if !in.Success {
			return nil
		}
		issued, err := s.auths.issueTx(txCtx, order)
		if err != nil {
			return err
		}
		auth = &issued
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	publishOrderEvents(ctx, s.publisher, s.logger, event)

	result := PaymentResult{Success: in.Success, Order: order, Authorization: auth}
	if in.Success {
		d := time.Duration(auth.Payload.Seconds) * time.Second
		result.LEDTriggered = s.activator.Activate(ctx, order.DeviceID, command.Green, d)
	} else {
		result.LEDTriggered = s.activator.Activate(ctx, order.DeviceID, command.Red, PaymentFeedbackDuration)
	}
	s.logger.Printf("mock payment order_id=%s success=%t led_triggered=%t", order.ID, in.Success, result.LEDTriggered)
	return result, nil
}
