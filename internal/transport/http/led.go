package http

import (
	"context"
	"net/http"
	"time"

	"github.com/remoteled/platform/internal/command"
	"github.com/remoteled/platform/internal/domain"
)

// LEDService is the best-effort LED surface. Its results are reported, never
// turned into HTTP errors.
type LEDService interface {
	Activate(ctx context.Context, deviceID string, color command.Color, d time.Duration) bool
	IndicateProcessing(ctx context.Context, deviceID string, color command.Color) bool
	Deactivate(ctx context.Context, deviceID string) bool
}

const (
	ledActionActivate   = "activate"
	ledActionIndicate   = "indicate"
	ledActionDeactivate = "deactivate"
)

// HandleDeviceLED serves POST /devices/{id}/led. The color is given directly
// or derived from a status label (success, failed, processing).
func HandleDeviceLED(svc LEDService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req ledRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		deviceID := r.PathValue("id")

		var triggered bool
		switch req.Action {
		case ledActionDeactivate:
			triggered = svc.Deactivate(r.Context(), deviceID)
		case ledActionActivate, ledActionIndicate:
			color, ok := req.resolveColor()
			if !ok {
				writeError(w, http.StatusBadRequest, codeInvalidColor, domain.ErrInvalidColor.Error())
				return
			}
			if req.Action == ledActionIndicate {
				triggered = svc.IndicateProcessing(r.Context(), deviceID, color)
				break
			}
			if req.DurationSeconds <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidDuration, "duration_seconds must be positive")
				return
			}
			triggered = svc.Activate(r.Context(), deviceID, color, time.Duration(req.DurationSeconds)*time.Second)
		default:
			writeError(w, http.StatusBadRequest, codeInvalidAction, "action must be activate, indicate or deactivate")
			return
		}

		writeJSON(w, http.StatusOK, ledResponse{LEDTriggered: triggered})
	}
}

type ledRequest struct {
	Action          string `json:"action"`
	Color           string `json:"color,omitempty"`
	Status          string `json:"status,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

func (r ledRequest) resolveColor() (command.Color, bool) {
	if r.Color != "" {
		c, err := command.ParseColor(r.Color)
		return c, err == nil
	}
	return command.ColorForStatus(r.Status)
}

type ledResponse struct {
	LEDTriggered bool `json:"led_triggered"`
}
