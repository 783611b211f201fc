package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/remoteled/platform/internal/authz"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/domain"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

type TelemetryService struct {
	orders    OrderRepository
	logs      TelemetryRepository
	catalog   CatalogRepository
	publisher EventPublisher
	clock     clock.Clock
	logger    *log.Logger
}

func NewTelemetryService(orders OrderRepository, logs TelemetryRepository, catalog CatalogRepository, publisher EventPublisher, clk clock.Clock, logger *log.Logger) *TelemetryService {
	if logger == nil {
		logger = log.Default()
	}
	return &TelemetryService{
		orders:    orders,
		logs:      logs,
		catalog:   catalog,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

type TelemetryInput struct {
	Event       domain.TelemetryEvent
	OrderID     string
	Details     string
	PayloadHash string
}

type TelemetryResult struct {
	Log   domain.DeviceLog
	Order *domain.Order
}

// Record appends a ledger entry and, when an order is named, moves it to the
// status the event implies. Both happen in one transaction. A redelivered event
// whose status the order already has is logged without a transition.
func (s *TelemetryService) Record(ctx context.Context, deviceID string, in TelemetryInput) (TelemetryResult, error) {
	if deviceID == "" {
		return TelemetryResult{}, domain.ErrInvalidID
	}
	to, ok := in.Event.OrderStatus()
	if !ok {
		return TelemetryResult{}, domain.ErrInvalidTelemetryEvent
	}
	if _, err := s.catalog.GetDevice(ctx, deviceID); err != nil {
		return TelemetryResult{}, err
	}

	entry := domain.DeviceLog{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		OrderID:     in.OrderID,
		Direction:   domain.DirectionDeviceToServer,
		Event:       in.Event,
		PayloadHash: in.PayloadHash,
		OK:          in.Event.OK(),
		Details:     in.Details,
		CreatedAt:   s.clock.Now(),
	}
	if entry.Details == "" {
		entry.Details = fmt.Sprintf("%s event received", in.Event)
	}
	if entry.PayloadHash == "" && in.OrderID != "" {
		nonce, err := authz.NewNonce()
		if err != nil {
			return TelemetryResult{}, err
		}
		entry.PayloadHash = "sha256:" + nonce
	}

	var (
		result TelemetryResult
		evts   []domain.OrderEvent
	)
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.logs.CreateLog(txCtx, entry); err != nil {
			return err
		}
		result.Log = entry
		if in.OrderID == "" {
			return nil
		}

		order, err := s.orders.GetOrder(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if order.DeviceID != deviceID {
			return domain.ErrOrderDeviceMismatch
		}
		if order.Status != to {
			event, err := applyTransition(txCtx, s.orders, &order, to, entry.CreatedAt)
			if err != nil {
				return err
			}
			evts = append(evts, event)
		}
		result.Order = &order
		return nil
	})
	if err != nil {
		return TelemetryResult{}, err
	}
	publishOrderEvents(ctx, s.publisher, s.logger, evts...)
	return result, nil
}

// Logs lists the most recent ledger entries for a device, newest first.
func (s *TelemetryService) Logs(ctx context.Context, deviceID string, limit int) ([]domain.DeviceLog, error) {
	if deviceID == "" {
		return nil, domain.ErrInvalidID
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	if _, err := s.catalog.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.logs.ListLogs(ctx, deviceID, limit)
}
