package http

import (
	"log"
	"net/http"
)

// Services bundles everything the router dispatches to.
type Services struct {
	DB             Pinger
	Orders         OrderService
	Payments       PaymentService
	Authorizations AuthorizationService
	PublicKey      PublicKeySource
	Telemetry      TelemetryService
	LED            LEDService
	Devices        AdminDeviceService
	Catalog        AdminServiceService
}

// NewRouter registers every API route. Handlers check the method themselves so
// that mismatches get a JSON 405.
func NewRouter(s Services, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", HealthHandler(s.DB, logger))

	mux.Handle("/orders", HandleCreateOrder(s.Orders, logger))
	mux.Handle("/orders/{id}", HandleOrder(s.Orders, logger))
	mux.Handle("/orders/{id}/status", HandleOrderStatus(s.Orders, logger))

	mux.Handle("/payments/mock", HandleMockPayment(s.Payments, logger))

	mux.Handle("/authorizations", HandleIssueAuthorization(s.Authorizations, logger))
	mux.Handle("/authorizations/{id}", HandleAuthorization(s.Authorizations, logger))
	mux.Handle("/authorizations/order/{id}", HandleAuthorizationByOrder(s.Authorizations, logger))
	mux.Handle("/authorizations/public-key", HandlePublicKey(s.PublicKey, logger))

	mux.Handle("/devices/{id}/telemetry", HandleTelemetry(s.Telemetry, logger))
	mux.Handle("/devices/{id}/logs", HandleDeviceLogs(s.Telemetry, logger))
	mux.Handle("/devices/{id}/led", HandleDeviceLED(s.LED))

	mux.Handle("/admin/devices", HandleAdminDevices(s.Devices, logger))
	mux.Handle("/admin/devices/{id}/services", HandleAdminServices(s.Catalog, logger))

	mux.Handle("/", NotFoundHandler())
	return mux
}
