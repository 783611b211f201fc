package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{"liveness only", nil, http.StatusOK, "ok"},
		{"database up", pingFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"database down", pingFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, "database unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			HealthHandler(tt.db, quietLogger).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if body := rec.Body.String(); body != tt.body {
				t.Fatalf("expected body %q, got %q", tt.body, body)
			}
		})
	}
}
