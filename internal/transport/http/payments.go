package http

import (
	"context"
	"log"
	"net/http"

	"github.com/remoteled/platform/internal/app"
)

type PaymentService interface {
	ProcessMockPayment(ctx context.Context, in app.MockPaymentInput) (app.PaymentResult, error)
}

// HandleMockPayment serves POST /payments/mock. A declined payment is still a
// 200 with success=false.
func HandleMockPayment(svc PaymentService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req mockPaymentRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.OrderID == "" || req.Success == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "order_id and success are required")
			return
		}

		result, err := svc.ProcessMockPayment(r.Context(), app.MockPaymentInput{
			OrderID: req.OrderID,
			Success: *req.Success,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := paymentResponse{
			Success:      result.Success,
			Order:        newOrderResponse(result.Order),
			LEDTriggered: result.LEDTriggered,
		}
		if result.Authorization != nil {
			auth := newAuthorizationResponse(*result.Authorization)
			resp.Authorization = &auth
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type mockPaymentRequest struct {
	OrderID string `json:"order_id"`
	Success *bool  `json:"success"`
}

type paymentResponse struct {
	Success       bool                   `json:"success"`
	Order         orderResponse          `json:"order"`
	Authorization *authorizationResponse `json:"authorization,omitempty"`
	LEDTriggered  bool                   `json:"led_triggered"`
}
