package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/remoteled/platform/internal/app"
	"github.com/remoteled/platform/internal/domain"
)

// AdminDeviceService is the minimal interface needed for admin device endpoints.
type AdminDeviceService interface {
	CreateDevice(ctx context.Context, in app.CreateDeviceInput) (domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
}

// AdminServiceService is the minimal interface needed for admin service endpoints.
type AdminServiceService interface {
	CreateService(ctx context.Context, in app.CreateServiceInput) (domain.Service, error)
	ListServices(ctx context.Context, deviceID string) ([]domain.Service, error)
}

// HandleAdminDevices serves GET and POST /admin/devices.
func HandleAdminDevices(svc AdminDeviceService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			devices, err := svc.ListDevices(r.Context())
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			resp := make([]deviceResponse, 0, len(devices))
			for _, d := range devices {
				resp = append(resp, newDeviceResponse(d))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createDeviceRequest
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			device, err := svc.CreateDevice(r.Context(), app.CreateDeviceInput{
				Name:   req.Name,
				Status: domain.DeviceStatus(req.Status),
			})
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, newDeviceResponse(device))
		default:
			methodNotAllowed(w)
		}
	}
}

// HandleAdminServices serves GET and POST /admin/devices/{id}/services.
func HandleAdminServices(svc AdminServiceService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.PathValue("id")

		switch r.Method {
		case http.MethodGet:
			services, err := svc.ListServices(r.Context(), deviceID)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			resp := make([]serviceResponse, 0, len(services))
			for _, s := range services {
				resp = append(resp, newServiceResponse(s))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createServiceRequest
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			service, err := svc.CreateService(r.Context(), app.CreateServiceInput{
				DeviceID:      deviceID,
				Name:          req.Name,
				Type:          domain.ServiceType(req.Type),
				PriceCents:    req.PriceCents,
				FixedMinutes:  req.FixedMinutes,
				MinutesPer25c: req.MinutesPer25c,
				Active:        req.Active,
			})
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, newServiceResponse(service))
		default:
			methodNotAllowed(w)
		}
	}
}

type createDeviceRequest struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type deviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newDeviceResponse(d domain.Device) deviceResponse {
	return deviceResponse{ID: d.ID, Name: d.Name, Status: string(d.Status), CreatedAt: d.CreatedAt}
}

type createServiceRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	PriceCents    int    `json:"price_cents"`
	FixedMinutes  int    `json:"fixed_minutes,omitempty"`
	MinutesPer25c int    `json:"minutes_per_25c,omitempty"`
	Active        *bool  `json:"active,omitempty"`
}

type serviceResponse struct {
	ID            string `json:"id"`
	DeviceID      string `json:"device_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	PriceCents    int    `json:"price_cents"`
	FixedMinutes  int    `json:"fixed_minutes"`
	MinutesPer25c int    `json:"minutes_per_25c"`
	Active        bool   `json:"active"`
}

func newServiceResponse(s domain.Service) serviceResponse {
	return serviceResponse{
		ID:            s.ID,
		DeviceID:      s.DeviceID,
		Name:          s.Name,
		Type:          string(s.Type),
		PriceCents:    s.PriceCents,
		FixedMinutes:  s.FixedMinutes,
		MinutesPer25c: s.MinutesPer25c,
		Active:        s.Active,
	}
}
