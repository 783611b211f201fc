package domain

import "time"

type TelemetryEvent string

const (
	TelemetryStarted TelemetryEvent = "STARTED"
	TelemetryDone    TelemetryEvent = "DONE"
	TelemetryError   TelemetryEvent = "ERROR"
)

// OrderStatus maps a telemetry event to the status it drives an order to.
func (e TelemetryEvent) OrderStatus() (OrderStatus, bool) {
	switch e {
	case TelemetryStarted:
		return OrderStatusRunning, true
	case TelemetryDone:
		return OrderStatusDone, true
	case TelemetryError:
		return OrderStatusFailed, true
	}
	return "", false
}

// OK reports whether the event describes a healthy device.
func (e TelemetryEvent) OK() bool {
	return e == TelemetryStarted || e == TelemetryDone
}

type LogDirection string

const (
	DirectionDeviceToServer LogDirection = "PI_TO_SRV"
	DirectionServerToDevice LogDirection = "SRV_TO_PI"
)

// DeviceLog is one entry of the per-device telemetry ledger.
type DeviceLog struct {
	ID          string
	DeviceID    string
	OrderID     string
	Direction   LogDirection
	Event       TelemetryEvent
	PayloadHash string
	OK          bool
	Details     string
	CreatedAt   time.Time
}
