// Package events fans order and activation events out to in-process
// subscribers and to NATS.
package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/remoteled/platform/internal/domain"
)

// ActivationFailure reports a best-effort LED action that did not complete.
type ActivationFailure struct {
	DeviceID string    `json:"device_id"`
	OrderID  string    `json:"order_id,omitempty"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type OrderHandler func(ctx context.Context, event domain.OrderEvent)

// Bus delivers events to in-process subscribers synchronously, in
// subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []OrderHandler
	logger   *log.Logger
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

func (b *Bus) Subscribe(h OrderHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	b.mu.RLock()
	handlers := append([]OrderHandler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

func (b *Bus) PublishActivationFailure(_ context.Context, f ActivationFailure) error {
	b.logger.Printf("activation failed device_id=%s order_id=%s action=%s reason=%s", f.DeviceID, f.OrderID, f.Action, f.Reason)
	return nil
}

// Publisher is implemented by Bus, NATSPublisher and Multi.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
	PublishActivationFailure(ctx context.Context, f ActivationFailure) error
}

// Multi publishes to every target and joins their errors.
type Multi []Publisher

func (m Multi) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishOrderEvent(ctx, event))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishActivationFailure(ctx context.Context, f ActivationFailure) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishActivationFailure(ctx, f))
	}
	return errors.Join(errs...)
}
