package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/remoteled/platform/internal/app"
	"github.com/remoteled/platform/internal/authz"
	"github.com/remoteled/platform/internal/ble"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/events"
	"github.com/remoteled/platform/internal/storage/postgres"
	"github.com/remoteled/platform/internal/testutil"
)

type apiErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestPaymentFlow_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	logger := log.New(io.Discard, "", 0)
	clk := clock.NewSystem()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := authz.NewSigner(key)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	orderRepo := postgres.NewOrderRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	authRepo := postgres.NewAuthorizationRepository(pool)
	logRepo := postgres.NewTelemetryRepository(pool)

	bus := events.NewBus(logger)
	radio := ble.NewManager(ble.Unavailable{}, ble.Config{Key: "9F64"}, logger)
	activation := app.NewActivationService(radio, bus, clk, logger)
	t.Cleanup(func() { _ = activation.Shutdown(context.Background()) })
	bus.Subscribe(activation.HandleOrderEvent)

	catalog := app.NewCatalogService(catalogRepo, clk)
	orders := app.NewOrderService(orderRepo, catalogRepo, bus, clk, app.WithOrderLogger(logger))
	auths := app.NewAuthorizationService(orderRepo, authRepo, signer, clk, app.WithAuthorizationLogger(logger))
	payments := app.NewPaymentService(orderRepo, auths, activation, bus, clk,
		app.WithMockPayments(true), app.WithPaymentLogger(logger))
	telemetry := app.NewTelemetryService(orderRepo, logRepo, catalogRepo, bus, clk, logger)

	router := NewRouter(Services{
		DB:             pool,
		Orders:         orders,
		Payments:       payments,
		Authorizations: auths,
		PublicKey:      signer,
		Telemetry:      telemetry,
		LED:            activation,
		Devices:        catalog,
		Catalog:        catalog,
	}, logger)

	rec := doJSON(t, router, http.MethodPost, "/admin/devices", map[string]any{"name": "Washer 1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create device: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	device := decode[deviceResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/admin/devices/"+device.ID+"/services", map[string]any{
		"name": "Wash", "type": "FIXED", "price_cents": 300, "fixed_minutes": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create service: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	service := decode[serviceResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"device_id": device.ID, "service_id": service.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	order := decode[orderResponse](t, rec)
	if order.AmountCents != 300 || order.AuthorizedSeconds != 1800 || order.Status != "CREATED" {
		t.Fatalf("unexpected order: %+v", order)
	}

	rec = doJSON(t, router, http.MethodPost, "/payments/mock", map[string]any{
		"order_id": order.ID, "success": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	paid := decode[paymentResponse](t, rec)
	if !paid.Success || paid.Order.Status != "PAID" || paid.Authorization == nil {
		t.Fatalf("unexpected payment result: %+v", paid)
	}
	if paid.LEDTriggered {
		t.Fatalf("expected led_triggered=false without a radio")
	}

	verifier, err := authz.NewVerifier(signer.PublicKey())
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if err := verifier.Verify(paid.Authorization.Payload, paid.Authorization.Signature, time.Now()); err != nil {
		t.Fatalf("issued authorization does not verify: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/authorizations", map[string]any{"order_id": order.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reissue: expected 409, got %d", rec.Code)
	}
	if got := decode[apiErrorResponse](t, rec); got.Code != codeAlreadyIssued {
		t.Fatalf("expected %s, got %s", codeAlreadyIssued, got.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/authorizations/order/"+order.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get authorization: expected 200, got %d", rec.Code)
	}
	if got := decode[authorizationResponse](t, rec); got.Signature != paid.Authorization.Signature {
		t.Fatalf("stored signature differs")
	}

	rec = doJSON(t, router, http.MethodGet, "/authorizations/"+paid.Authorization.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get authorization by id: expected 200, got %d", rec.Code)
	}
	if got := decode[authorizationResponse](t, rec); got.OrderID != order.ID || got.Signature != paid.Authorization.Signature {
		t.Fatalf("unexpected authorization by id: %+v", got)
	}

	for _, event := range []string{"STARTED", "DONE"} {
		rec = doJSON(t, router, http.MethodPost, "/devices/"+device.ID+"/telemetry", map[string]any{
			"event": event, "order_id": order.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("telemetry %s: expected 201, got %d: %s", event, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/orders/"+order.ID, nil)
	if got := decode[orderResponse](t, rec); got.Status != "DONE" {
		t.Fatalf("expected DONE, got %s", got.Status)
	}

	rec = doJSON(t, router, http.MethodGet, "/devices/"+device.ID+"/logs?limit=10", nil)
	logs := decode[[]logResponse](t, rec)
	if len(logs) != 2 || logs[0].Event != "DONE" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	rec = doJSON(t, router, http.MethodPatch, "/orders/"+order.ID+"/status", map[string]any{"status": "RUNNING"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("terminal transition: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/orders/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}
}
