package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remoteled/platform/internal/domain"
)

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn{pool: pool}}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, device_id, service_id, service_type, amount_cents, authorized_seconds, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		order.ID, order.DeviceID, order.ServiceID, string(order.ServiceType),
		order.AmountCents, order.AuthorizedSeconds, string(order.Status),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if constraint, ok := foreignKeyViolation(err); ok {
			if constraint == "orders_service_id_fkey" {
				return domain.ErrServiceNotFound
			}
			return domain.ErrDeviceNotFound
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, device_id, service_id, service_type, amount_cents, authorized_seconds, status, created_at, updated_at
FROM orders
WHERE id = $1`

	var (
		o           domain.Order
		serviceType string
		status      string
	)
	err := r.queryRow(ctx, query, orderID).Scan(
		&o.ID, &o.DeviceID, &o.ServiceID, &serviceType,
		&o.AmountCents, &o.AuthorizedSeconds, &status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.ServiceType = domain.ServiceType(serviceType)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

// UpdateOrderStatus is a compare-and-set on status. A miss is reported as
// ErrOrderNotFound when the row is gone and ErrStatusConflict otherwise.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	const stmt = `
UPDATE orders
SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, orderID, string(from), string(to), at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrStatusConflict
}
