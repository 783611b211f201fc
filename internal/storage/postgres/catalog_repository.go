package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remoteled/platform/internal/domain"
)

// CatalogRepository stores devices and the services they sell.
type CatalogRepository struct {
	conn
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{conn{pool: pool}}
}

func (r *CatalogRepository) CreateDevice(ctx context.Context, device domain.Device) error {
	const stmt = `
INSERT INTO devices (id, name, status, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.exec(ctx, stmt, device.ID, device.Name, string(device.Status), device.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListDevices(ctx context.Context) ([]domain.Device, error) {
	const query = `
SELECT id, name, status, created_at
FROM devices
ORDER BY created_at ASC, id ASC`
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.Device
	for rows.Next() {
		var (
			d      domain.Device
			status string
		)
		if err := rows.Scan(&d.ID, &d.Name, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.Status = domain.DeviceStatus(status)
		devices = append(devices, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate devices: %w", rows.Err())
	}
	return devices, nil
}

func (r *CatalogRepository) GetDevice(ctx context.Context, deviceID string) (domain.Device, error) {
	const query = `SELECT id, name, status, created_at FROM devices WHERE id = $1`

	var (
		d      domain.Device
		status string
	)
	err := r.queryRow(ctx, query, deviceID).Scan(&d.ID, &d.Name, &status, &d.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Device{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Device{}, domain.ErrDeviceNotFound
		}
		return domain.Device{}, fmt.Errorf("get device: %w", err)
	}
	d.Status = domain.DeviceStatus(status)
	return d, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, svc domain.Service) error {
	const stmt = `
INSERT INTO services (id, device_id, name, type, price_cents, fixed_minutes, minutes_per_25c, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.exec(ctx, stmt,
		svc.ID, svc.DeviceID, svc.Name, string(svc.Type),
		svc.PriceCents, svc.FixedMinutes, svc.MinutesPer25c, svc.Active, svc.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrServiceAlreadyExists
		}
		if _, ok := foreignKeyViolation(err); ok {
			return domain.ErrDeviceNotFound
		}
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListServicesByDevice(ctx context.Context, deviceID string) ([]domain.Service, error) {
	if _, err := r.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	const query = `
SELECT id, device_id, name, type, price_cents, fixed_minutes, minutes_per_25c, active, created_at
FROM services
WHERE device_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate services: %w", rows.Err())
	}
	return services, nil
}

// GetService only finds services owned by deviceID.
func (r *CatalogRepository) GetService(ctx context.Context, deviceID, serviceID string) (domain.Service, error) {
	const query = `
SELECT id, device_id, name, type, price_cents, fixed_minutes, minutes_per_25c, active, created_at
FROM services
WHERE id = $1 AND device_id = $2`

	svc, err := scanService(r.queryRow(ctx, query, serviceID, deviceID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Service{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Service{}, domain.ErrServiceNotFound
		}
		return domain.Service{}, err
	}
	return svc, nil
}

func scanService(row pgx.Row) (domain.Service, error) {
	var (
		svc domain.Service
		typ string
	)
	err := row.Scan(
		&svc.ID, &svc.DeviceID, &svc.Name, &typ,
		&svc.PriceCents, &svc.FixedMinutes, &svc.MinutesPer25c, &svc.Active, &svc.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Service{}, err
		}
		return domain.Service{}, fmt.Errorf("scan service: %w", err)
	}
	svc.Type = domain.ServiceType(typ)
	return svc, nil
}
