package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotFoundHandler(t *testing.T) {
	t.Parallel()

	router := NewRouter(Services{}, quietLogger)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeNotFound {
		t.Fatalf("expected code %s, got %s", codeNotFound, resp.Code)
	}
	if resp.Error != "no route for GET /missing" {
		t.Fatalf("unexpected message %q", resp.Error)
	}
}
