package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remoteled/platform/internal/domain"
)

// TelemetryRepository is the append-only device log.
type TelemetryRepository struct {
	conn
}

func NewTelemetryRepository(pool *pgxpool.Pool) *TelemetryRepository {
	return &TelemetryRepository{conn{pool: pool}}
}

func (r *TelemetryRepository) CreateLog(ctx context.Context, entry domain.DeviceLog) error {
	const stmt = `
INSERT INTO device_logs (id, device_id, order_id, direction, event, payload_hash, ok, details, created_at)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)`
	_, err := r.exec(ctx, stmt,
		entry.ID, entry.DeviceID, entry.OrderID, string(entry.Direction), string(entry.Event),
		entry.PayloadHash, entry.OK, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if constraint, ok := foreignKeyViolation(err); ok {
			if constraint == "device_logs_order_id_fkey" {
				return domain.ErrOrderNotFound
			}
			return domain.ErrDeviceNotFound
		}
		return fmt.Errorf("create device log: %w", err)
	}
	return nil
}

func (r *TelemetryRepository) ListLogs(ctx context.Context, deviceID string, limit int) ([]domain.DeviceLog, error) {
	const query = `
SELECT id, device_id, COALESCE(order_id::text, ''), direction, event, payload_hash, ok, details, created_at
FROM device_logs
WHERE device_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.query(ctx, query, deviceID, limit)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list device logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.DeviceLog
	for rows.Next() {
		var (
			l         domain.DeviceLog
			direction string
			event     string
		)
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.OrderID, &direction, &event, &l.PayloadHash, &l.OK, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device log: %w", err)
		}
		l.Direction = domain.LogDirection(direction)
		l.Event = domain.TelemetryEvent(event)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate device logs: %w", err)
	}
	return logs, nil
}
