package http

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/remoteled/platform/internal/app"
	"github.com/remoteled/platform/internal/domain"
)

type TelemetryService interface {
	Record(ctx context.Context, deviceID string, in app.TelemetryInput) (app.TelemetryResult, error)
	Logs(ctx context.Context, deviceID string, limit int) ([]domain.DeviceLog, error)
}

// HandleTelemetry serves POST /devices/{id}/telemetry.
func HandleTelemetry(svc TelemetryService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req telemetryRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Event == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "event is required")
			return
		}

		result, err := svc.Record(r.Context(), r.PathValue("id"), app.TelemetryInput{
			Event:       domain.TelemetryEvent(req.Event),
			OrderID:     req.OrderID,
			Details:     req.Details,
			PayloadHash: req.PayloadHash,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := telemetryResponse{Log: newLogResponse(result.Log)}
		if result.Order != nil {
			order := newOrderResponse(*result.Order)
			resp.Order = &order
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// HandleDeviceLogs serves GET /devices/{id}/logs?limit=N.
func HandleDeviceLogs(svc TelemetryService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidLimit, "limit must be a positive integer")
				return
			}
			limit = n
		}

		logs, err := svc.Logs(r.Context(), r.PathValue("id"), limit)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]logResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, newLogResponse(l))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type telemetryRequest struct {
	Event       string `json:"event"`
	OrderID     string `json:"order_id,omitempty"`
	Details     string `json:"details,omitempty"`
	PayloadHash string `json:"payload_hash,omitempty"`
}

type telemetryResponse struct {
	Log   logResponse    `json:"log"`
	Order *orderResponse `json:"order,omitempty"`
}

type logResponse struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	OrderID     string    `json:"order_id,omitempty"`
	Direction   string    `json:"direction"`
	Event       string    `json:"event"`
	PayloadHash string    `json:"payload_hash"`
	OK          bool      `json:"ok"`
	Details     string    `json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

func newLogResponse(l domain.DeviceLog) logResponse {
	return logResponse{
		ID:          l.ID,
		DeviceID:    l.DeviceID,
		OrderID:     l.OrderID,
		Direction:   string(l.Direction),
		Event:       string(l.Event),
		PayloadHash: l.PayloadHash,
		OK:          l.OK,
		Details:     l.Details,
		CreatedAt:   l.CreatedAt,
	}
}
