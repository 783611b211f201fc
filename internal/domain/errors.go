package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrDeviceNotFound         = errors.New("device not found")
	ErrServiceNotFound        = errors.New("service not found")
	ErrServiceInactive        = errors.New("service is not active")
	ErrAuthorizationNotFound  = errors.New("authorization not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrStatusConflict         = errors.New("order status changed concurrently")
	ErrInvalidState           = errors.New("order is not in the required status")
	ErrAlreadyIssued          = errors.New("authorization already exists for this order")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidServiceType     = errors.New("invalid service type")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrInvalidTelemetryEvent  = errors.New("invalid telemetry event")
	ErrOrderDeviceMismatch    = errors.New("order does not belong to device")
	ErrDeviceNameRequired     = errors.New("device name required")
	ErrServiceNameRequired    = errors.New("service name required")
	ErrInvalidColor           = errors.New("invalid led color")
	ErrMockPaymentDisabled    = errors.New("mock payments are disabled in this environment")
	ErrInvalidID              = errors.New("invalid id")
	ErrServiceAlreadyExists   = errors.New("service already exists")
	ErrInvalidServiceSettings = errors.New("invalid service settings")
)

// InvalidTransitionError reports a status pair outside the transition table.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
