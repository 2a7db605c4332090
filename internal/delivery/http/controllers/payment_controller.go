package controllers

import (
	"crypto/hmac"
	"encoding/json"
	"log/slog"
	"net/http"

	"eventgate/internal/delivery/http/helpers"
	"eventgate/internal/delivery/http/middleware"
	"eventgate/internal/domain"
)

// WebhookTokenHeader carries the shared secret authenticating gateway webhooks.
const WebhookTokenHeader = "X-Callback-Token"

type PaymentController struct {
	Logger        *slog.Logger
	Service       domain.PaymentService
	WebhookSecret string
}

func NewPaymentController(logger *slog.Logger, svc domain.PaymentService, webhookSecret string) *PaymentController {
	return &PaymentController{
		Logger:        logger,
		Service:       svc,
		WebhookSecret: webhookSecret,
	}
}

// CreatePaymentRequest is the request body for POST /payments.
type CreatePaymentRequest struct {
	EventID string `json:"event_id"`
}

// Validate implements helpers.Validator.
func (r *CreatePaymentRequest) Validate() []string {
	if r.EventID == "" {
		return []string{"event_id is required"}
	}
	if !uuidRegex.MatchString(r.EventID) {
		return []string{"event_id must be a UUID"}
	}
	return nil
}

// PaymentSuccessResponse is the success envelope for payment endpoints.
type PaymentSuccessResponse struct {
	Data  *domain.Payment   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreatePayment godoc
// @Summary Create (or return the pending) payment for an event
// @Description Creates a gateway invoice for the event's price and persists a pending payment. Idempotent: an existing pending payment for the same event and user is returned unchanged.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreatePaymentRequest true "Event to pay for"
// @Success 200 {object} controllers.PaymentSuccessResponse "Existing pending payment"
// @Success 201 {object} controllers.PaymentSuccessResponse "Payment created"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered | already_paid"
// @Failure 502 {object} helpers.APIResponse "error.code: payment_gateway_error"
// @Router /payments [post]
func (c *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	payment, err := c.Service.CreatePayment(r.Context(), req.EventID, userID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, payment)
}

// GetPaymentStatus godoc
// @Summary Get the current status of a payment
// @Description Returns the payment, reconciling a pending payment with the gateway first. If the gateway is unreachable the last-known local status is returned.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param paymentID path string true "Payment ID (UUID)"
// @Success 200 {object} controllers.PaymentSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /payments/{paymentID} [get]
func (c *PaymentController) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("paymentID")
	if !uuidRegex.MatchString(paymentID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid paymentID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	payment, err := c.Service.CheckStatus(r.Context(), paymentID, userID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, payment)
}

// Webhook godoc
// @Summary Payment gateway webhook
// @Description Applies a gateway invoice event (invoice.paid, invoice.expired, invoice.failed). Authenticated by the shared-secret X-Callback-Token header; unauthenticated or unrecognized payloads are rejected without side effects.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Callback-Token header string true "Shared webhook secret"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /payments/webhook [post]
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	// Constant-time comparison; an empty configured secret disables the
	// endpoint rather than accepting everything.
	token := r.Header.Get(WebhookTokenHeader)
	if c.WebhookSecret == "" || !hmac.Equal([]byte(token), []byte(c.WebhookSecret)) {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid webhook token")
		return
	}

	var evt domain.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "malformed webhook payload")
		return
	}

	if err := c.Service.HandleWebhook(r.Context(), evt); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.Logger.ErrorContext(r.Context(), "webhook processing failed", "event", evt.Event, "invoice_id", evt.Data.ID, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "webhook processing failed")
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
