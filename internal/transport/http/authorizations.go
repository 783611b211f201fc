package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/remoteled/platform/internal/domain"
)

type AuthorizationService interface {
	Issue(ctx context.Context, orderID string) (domain.Authorization, error)
	Get(ctx context.Context, id string) (domain.Authorization, error)
	GetByOrder(ctx context.Context, orderID string) (domain.Authorization, error)
}

// PublicKeySource exposes the verification key for devices and clients.
type PublicKeySource interface {
	PublicKeyPEM() ([]byte, error)
}

// HandleIssueAuthorization serves POST /authorizations.
func HandleIssueAuthorization(svc AuthorizationService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req issueAuthorizationRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.OrderID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "order_id is required")
			return
		}

		auth, err := svc.Issue(r.Context(), req.OrderID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAuthorizationResponse(auth))
	}
}

// HandleAuthorization serves GET /authorizations/{id}.
func HandleAuthorization(svc AuthorizationService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		auth, err := svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newAuthorizationResponse(auth))
	}
}

// HandleAuthorizationByOrder serves GET /authorizations/order/{id}.
func HandleAuthorizationByOrder(svc AuthorizationService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		auth, err := svc.GetByOrder(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newAuthorizationResponse(auth))
	}
}

// HandlePublicKey serves GET /authorizations/public-key as PEM.
func HandlePublicKey(src PublicKeySource, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		pemBytes, err := src.PublicKeyPEM()
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-pem-file")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pemBytes)
	}
}

type issueAuthorizationRequest struct {
	OrderID string `json:"order_id"`
}

type authorizationResponse struct {
	ID        string                      `json:"id"`
	OrderID   string                      `json:"order_id"`
	DeviceID  string                      `json:"device_id"`
	Payload   domain.AuthorizationPayload `json:"payload"`
	Signature string                      `json:"signature"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

func newAuthorizationResponse(a domain.Authorization) authorizationResponse {
	return authorizationResponse{
		ID:        a.ID,
		OrderID:   a.OrderID,
		DeviceID:  a.DeviceID,
		Payload:   a.Payload,
		Signature: a.SignatureHex,
		ExpiresAt: a.ExpiresAt,
	}
}
