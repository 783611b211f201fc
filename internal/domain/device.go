package domain

import "time"

type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "ACTIVE"
	DeviceStatusOffline     DeviceStatus = "OFFLINE"
	DeviceStatusMaintenance DeviceStatus = "MAINTENANCE"
	DeviceStatusDeactivated DeviceStatus = "DEACTIVATED"
)

// Device is a physical machine fronted by an embedded LED controller.
type Device struct {
	ID        string
	Name      string
	Status    DeviceStatus
	CreatedAt time.Time
}

type ServiceType string

const (
	ServiceTypeTrigger  ServiceType = "TRIGGER"
	ServiceTypeFixed    ServiceType = "FIXED"
	ServiceTypeVariable ServiceType = "VARIABLE"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeTrigger, ServiceTypeFixed, ServiceTypeVariable:
		return true
	}
	return false
}

// Service is a sellable product on a device (a wash cycle, a dryer minute pack, a pulse).
type Service struct {
	ID            string
	DeviceID      string
	Name          string
	Type          ServiceType
	PriceCents    int
	FixedMinutes  int
	MinutesPer25c int
	Active        bool
	CreatedAt     time.Time
}

// AuthorizedSeconds derives how long an order for amountCents may run.
// Trigger services are instantaneous, fixed services use their configured length
// and variable services grant minutes per 25 cents paid.
func (s Service) AuthorizedSeconds(amountCents int) int {
	switch s.Type {
	case ServiceTypeFixed:
		return s.FixedMinutes * 60
	case ServiceTypeVariable:
		quarters := amountCents / 25
		return quarters * s.MinutesPer25c * 60
	default:
		return 0
	}
}

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusActive, DeviceStatusOffline, DeviceStatusMaintenance, DeviceStatusDeactivated:
		return true
	}
	return false
}
