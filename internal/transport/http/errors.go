package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/remoteled/platform/internal/domain"
)

const (
	codeMethodNotAllowed       = "method_not_allowed"
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeMissingRequiredField   = "missing_required_field"
	codeInvalidID              = "invalid_id"
	codeInvalidAmount          = "invalid_amount"
	codeInvalidStatus          = "invalid_status"
	codeInvalidTransition      = "invalid_transition"
	codeStatusConflict         = "status_conflict"
	codeInvalidState           = "invalid_state"
	codeOrderNotFound          = "order_not_found"
	codeDeviceNotFound         = "device_not_found"
	codeServiceNotFound        = "service_not_found"
	codeServiceInactive        = "service_inactive"
	codeServiceAlreadyExists   = "service_already_exists"
	codeInvalidServiceSettings = "invalid_service_settings"
	codeInvalidServiceType     = "invalid_service_type"
	codeDeviceNameRequired     = "device_name_required"
	codeServiceNameRequired    = "service_name_required"
	codeAuthorizationNotFound  = "authorization_not_found"
	codeAlreadyIssued          = "authorization_already_issued"
	codeInvalidTelemetryEvent  = "invalid_telemetry_event"
	codeOrderDeviceMismatch    = "order_device_mismatch"
	codeInvalidColor           = "invalid_color"
	codeInvalidAction          = "invalid_action"
	codeInvalidDuration        = "invalid_duration"
	codeInvalidLimit           = "invalid_limit"
	codeMockPaymentDisabled    = "mock_payment_disabled"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a service error to its HTTP status and stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, codeInvalidID
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, codeInvalidAmount
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, codeInvalidStatus
	case errors.Is(err, domain.ErrInvalidServiceType):
		return http.StatusBadRequest, codeInvalidServiceType
	case errors.Is(err, domain.ErrInvalidServiceSettings):
		return http.StatusBadRequest, codeInvalidServiceSettings
	case errors.Is(err, domain.ErrDeviceNameRequired):
		return http.StatusBadRequest, codeDeviceNameRequired
	case errors.Is(err, domain.ErrServiceNameRequired):
		return http.StatusBadRequest, codeServiceNameRequired
	case errors.Is(err, domain.ErrInvalidTelemetryEvent):
		return http.StatusBadRequest, codeInvalidTelemetryEvent
	case errors.Is(err, domain.ErrInvalidColor):
		return http.StatusBadRequest, codeInvalidColor
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, codeOrderNotFound
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound, codeDeviceNotFound
	case errors.Is(err, domain.ErrServiceNotFound):
		return http.StatusNotFound, codeServiceNotFound
	case errors.Is(err, domain.ErrAuthorizationNotFound):
		return http.StatusNotFound, codeAuthorizationNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, codeInvalidTransition
	case errors.Is(err, domain.ErrStatusConflict):
		return http.StatusConflict, codeStatusConflict
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, codeInvalidState
	case errors.Is(err, domain.ErrAlreadyIssued):
		return http.StatusConflict, codeAlreadyIssued
	case errors.Is(err, domain.ErrServiceAlreadyExists):
		return http.StatusConflict, codeServiceAlreadyExists
	case errors.Is(err, domain.ErrServiceInactive):
		return http.StatusConflict, codeServiceInactive
	case errors.Is(err, domain.ErrOrderDeviceMismatch):
		return http.StatusConflict, codeOrderDeviceMismatch
	case errors.Is(err, domain.ErrMockPaymentDisabled):
		return http.StatusForbidden, codeMockPaymentDisabled
	}
	return http.StatusInternalServerError, codeInternalError
}

// writeServiceError hides internal error text from clients and logs it instead.
func writeServiceError(w http.ResponseWriter, logger *log.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Printf("ERROR: request failed err=%v", err)
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

// decodeBody rejects unknown fields and trailing garbage.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
