package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/remoteled/platform/internal/app"
	"github.com/remoteled/platform/internal/domain"
)

// OrderService is the subset of the order service used by order endpoints.
type OrderService interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	Transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error)
}

// HandleCreateOrder serves POST /orders.
func HandleCreateOrder(svc OrderService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req createOrderRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.DeviceID == "" || req.ServiceID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "device_id and service_id are required")
			return
		}

		order, err := svc.PlaceOrder(r.Context(), app.PlaceOrderInput{
			DeviceID:    req.DeviceID,
			ServiceID:   req.ServiceID,
			AmountCents: req.AmountCents,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

// HandleOrder serves GET /orders/{id}.
func HandleOrder(svc OrderService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		order, err := svc.GetOrder(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// HandleOrderStatus serves PATCH /orders/{id}/status.
func HandleOrderStatus(svc OrderService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}

		var req updateStatusRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Status == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "status is required")
			return
		}

		order, err := svc.Transition(r.Context(), r.PathValue("id"), domain.OrderStatus(req.Status))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type createOrderRequest struct {
	DeviceID    string `json:"device_id"`
	ServiceID   string `json:"service_id"`
	AmountCents int    `json:"amount_cents,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                string    `json:"id"`
	DeviceID          string    `json:"device_id"`
	ServiceID         string    `json:"service_id"`
	ServiceType       string    `json:"service_type"`
	AmountCents       int       `json:"amount_cents"`
	AuthorizedSeconds int       `json:"authorized_seconds"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		DeviceID:          o.DeviceID,
		ServiceID:         o.ServiceID,
		ServiceType:       string(o.ServiceType),
		AmountCents:       o.AmountCents,
		AuthorizedSeconds: o.AuthorizedSeconds,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}
