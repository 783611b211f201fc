package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/remoteled/platform/internal/authz"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/domain"
)

const defaultAuthorizationWindow = 5 * time.Minute

type AuthorizationService struct {
	orders AuthorizationOrders
	auths  AuthorizationRepository
	signer PayloadSigner
	clock  clock.Clock
	window time.Duration
	nonce  func() (string, error)
	logger *log.Logger
}

// AuthorizationOrders is the order access issuance needs.
type AuthorizationOrders interface {
	TxRunner
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}

type AuthorizationOption func(*AuthorizationService)

// WithAuthorizationWindow sets how long an issued payload stays valid.
func WithAuthorizationWindow(d time.Duration) AuthorizationOption {
	return func(s *AuthorizationService) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithNonceSource(fn func() (string, error)) AuthorizationOption {
	return func(s *AuthorizationService) {
		if fn != nil {
			s.nonce = fn
		}
	}
}

func WithAuthorizationLogger(logger *log.Logger) AuthorizationOption {
	return func(s *AuthorizationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewAuthorizationService(orders AuthorizationOrders, auths AuthorizationRepository, signer PayloadSigner, clk clock.Clock, opts ...AuthorizationOption) *AuthorizationService {
	s := &AuthorizationService{
		orders: orders,
		auths:  auths,
		signer: signer,
		clock:  clk,
		window: defaultAuthorizationWindow,
		nonce:  authz.NewNonce,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs and stores the single authorization a PAID order may have.
func (s *AuthorizationService) Issue(ctx context.Context, orderID string) (domain.Authorization, error) {
	if orderID == "" {
		return domain.Authorization{}, domain.ErrInvalidID
	}
	var auth domain.Authorization
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		auth, err = s.issueTx(txCtx, order)
		return err
	})
	if err != nil {
		return domain.Authorization{}, err
	}
	return auth, nil
}

// issueTx runs inside the caller's transaction. A concurrent issuer losing the
// race on the unique order index gets ErrAlreadyIssued from the repository.
func (s *AuthorizationService) issueTx(ctx context.Context, order domain.Order) (domain.Authorization, error) {
	if order.Status != domain.OrderStatusPaid {
		return domain.Authorization{}, fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidState, order.Status, domain.OrderStatusPaid)
	}
	existing, err := s.auths.GetAuthorizationByOrder(ctx, order.ID)
	if err != nil {
		return domain.Authorization{}, err
	}
	if existing != nil {
		return domain.Authorization{}, domain.ErrAlreadyIssued
	}

	seconds := order.AuthorizedSeconds
	if order.ServiceType == domain.ServiceTypeTrigger {
		seconds = domain.TriggerPulseSeconds
	}
	nonce, err := s.nonce()
	if err != nil {
		return domain.Authorization{}, err
	}
	now := s.clock.Now()
	payload := domain.AuthorizationPayload{
		DeviceID:    order.DeviceID,
		OrderID:     order.ID,
		ServiceType: order.ServiceType,
		Seconds:     seconds,
		Nonce:       nonce,
		Exp:         now.Add(s.window).Unix(),
	}
	sig, err := s.signer.Sign(payload)
	if err != nil {
		return domain.Authorization{}, fmt.Errorf("sign authorization: %w", err)
	}

	auth := domain.Authorization{
		ID:           uuid.NewString(),
		OrderID:      order.ID,
		DeviceID:     order.DeviceID,
		Payload:      payload,
		SignatureHex: sig,
		ExpiresAt:    payload.ExpiresAt(),
		CreatedAt:    now,
	}
	if err := s.auths.CreateAuthorization(ctx, auth); err != nil {
		return domain.Authorization{}, err
	}
	s.logger.Printf("authorization issued order_id=%s device_id=%s seconds=%d exp=%d", order.ID, order.DeviceID, seconds, payload.Exp)
	return auth, nil
}

func (s *AuthorizationService) GetByOrder(ctx context.Context, orderID string) (domain.Authorization, error) {
	if orderID == "" {
		return domain.Authorization{}, domain.ErrInvalidID
	}
	auth, err := s.auths.GetAuthorizationByOrder(ctx, orderID)
	if err != nil {
		return domain.Authorization{}, err
	}
	if auth == nil {
		return domain.Authorization{}, domain.ErrAuthorizationNotFound
	}
	return *auth, nil
}

func (s *AuthorizationService) Get(ctx context.Context, id string) (domain.Authorization, error) {
	if id == "" {
		return domain.Authorization{}, domain.ErrInvalidID
	}
	auth, err := s.auths.GetAuthorization(ctx, id)
	if err != nil {
		return domain.Authorization{}, err
	}
	if auth == nil {
		return domain.Authorization{}, domain.ErrAuthorizationNotFound
	}
	return *auth, nil
}
