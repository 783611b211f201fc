package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusRunning OrderStatus = "RUNNING"
	OrderStatusDone    OrderStatus = "DONE"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusRunning, OrderStatusFailed},
	OrderStatusRunning: {OrderStatusDone, OrderStatusFailed},
	OrderStatusDone:    {},
	OrderStatusFailed:  {},
}

// CanTransition checks whether from -> to is part of the order lifecycle.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order represents one paid activation attempt for a device service.
type Order struct {
	ID                string
	DeviceID          string
	ServiceID         string
	ServiceType       ServiceType
	AmountCents       int
	AuthorizedSeconds int
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transition applies a lifecycle step in memory and returns the resulting event.
// The receiver is left untouched when the step is not allowed.
func (o *Order) Transition(to OrderStatus, at time.Time) (OrderEvent, error) {
	if !CanTransition(o.Status, to) {
		return OrderEvent{}, &InvalidTransitionError{From: o.Status, To: to}
	}
	event := OrderEvent{
		OrderID:  o.ID,
		DeviceID: o.DeviceID,
		From:     o.Status,
		To:       to,
		At:       at,
	}
	o.Status = to
	o.UpdatedAt = at
	return event, nil
}

// OrderEvent is emitted for every applied transition.
type OrderEvent struct {
	OrderID  string      `json:"order_id"`
	DeviceID string      `json:"device_id"`
	From     OrderStatus `json:"from"`
	To       OrderStatus `json:"to"`
	At       time.Time   `json:"at"`
}
