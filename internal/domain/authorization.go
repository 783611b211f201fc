package domain

import "time"

// TriggerPulseSeconds is the fixed activation length for trigger services.
const TriggerPulseSeconds = 2

// AuthorizationPayload is the signed claim that an order may activate a device.
// JSON names match the canonical field names that get signed.
type AuthorizationPayload struct {
	DeviceID    string      `json:"deviceId"`
	OrderID     string      `json:"orderId"`
	ServiceType ServiceType `json:"type"`
	Seconds     int         `json:"seconds"`
	Nonce       string      `json:"nonce"`
	Exp         int64       `json:"exp"`
}

// ExpiresAt returns the absolute expiry of the payload.
func (p AuthorizationPayload) ExpiresAt() time.Time {
	return time.Unix(p.Exp, 0).UTC()
}

// Authorization is the persisted payload and signature for one order.
type Authorization struct {
	ID           string
	OrderID      string
	DeviceID     string
	Payload      AuthorizationPayload
	SignatureHex string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
