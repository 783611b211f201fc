package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remoteled/platform/internal/domain"
)

type AuthorizationRepository struct {
	conn
}

func NewAuthorizationRepository(pool *pgxpool.Pool) *AuthorizationRepository {
	return &AuthorizationRepository{conn{pool: pool}}
}

// CreateAuthorization relies on the unique order_id index to enforce one
// authorization per order.
func (r *AuthorizationRepository) CreateAuthorization(ctx context.Context, auth domain.Authorization) error {
	payload, err := json.Marshal(auth.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	const stmt = `
INSERT INTO authorizations (id, order_id, device_id, payload, signature_hex, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.exec(ctx, stmt,
		auth.ID, auth.OrderID, auth.DeviceID, payload,
		auth.SignatureHex, auth.ExpiresAt, auth.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyIssued
		}
		if constraint, ok := foreignKeyViolation(err); ok {
			if constraint == "authorizations_device_id_fkey" {
				return domain.ErrDeviceNotFound
			}
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("create authorization: %w", err)
	}
	return nil
}

const selectAuthorization = `
SELECT id, order_id, device_id, payload, signature_hex, expires_at, created_at
FROM authorizations`

func (r *AuthorizationRepository) GetAuthorization(ctx context.Context, id string) (*domain.Authorization, error) {
	return r.getOne(ctx, selectAuthorization+"\nWHERE id = $1", id)
}

func (r *AuthorizationRepository) GetAuthorizationByOrder(ctx context.Context, orderID string) (*domain.Authorization, error) {
	return r.getOne(ctx, selectAuthorization+"\nWHERE order_id = $1", orderID)
}

// getOne returns nil when no row matches.
func (r *AuthorizationRepository) getOne(ctx context.Context, query string, arg string) (*domain.Authorization, error) {
	var (
		a       domain.Authorization
		payload []byte
	)
	err := r.queryRow(ctx, query, arg).Scan(
		&a.ID, &a.OrderID, &a.DeviceID, &payload, &a.SignatureHex, &a.ExpiresAt, &a.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get authorization: %w", err)
	}
	if err := json.Unmarshal(payload, &a.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &a, nil
}
