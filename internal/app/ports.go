package app

import (
	"context"
	"time"

	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/domain"
	"github.com/remoteled/platform/internal/events"
)

// TxRunner runs fn in one database transaction. Repositories called with the
// context passed to fn join that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OrderRepository interface {
	TxRunner
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	// UpdateOrderStatus moves an order from -> to only if it is still in from.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error
}

type CatalogRepository interface {
	CreateDevice(ctx context.Context, device domain.Device) error
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDevice(ctx context.Context, deviceID string) (domain.Device, error)
	CreateService(ctx context.Context, service domain.Service) error
	ListServicesByDevice(ctx context.Context, deviceID string) ([]domain.Service, error)
	GetService(ctx context.Context, deviceID, serviceID string) (domain.Service, error)
}

type AuthorizationRepository interface {
	CreateAuthorization(ctx context.Context, auth domain.Authorization) error
	// GetAuthorization returns nil when no authorization has that id.
	GetAuthorization(ctx context.Context, id string) (*domain.Authorization, error)
	// GetAuthorizationByOrder returns nil when the order has none.
	GetAuthorizationByOrder(ctx context.Context, orderID string) (*domain.Authorization, error)
}

type TelemetryRepository interface {
	CreateLog(ctx context.Context, entry domain.DeviceLog) error
	ListLogs(ctx context.Context, deviceID string, limit int) ([]domain.DeviceLog, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
	PublishActivationFailure(ctx context.Context, f events.ActivationFailure) error
}

// LEDLink delivers commands to the embedded controller.
type LEDLink interface {
	Send(ctx context.Context, cmd command.Command) error
	Activate(ctx context.Context, color command.Color, d time.Duration) (<-chan error, error)
}

// PayloadSigner produces a hex signature over an authorization payload.
type PayloadSigner interface {
	Sign(p domain.AuthorizationPayload) (string, error)
}

// Activator is the best-effort LED surface used by payment handling.
type Activator interface {
	Activate(ctx context.Context, deviceID string, color command.Color, d time.Duration) bool
}
