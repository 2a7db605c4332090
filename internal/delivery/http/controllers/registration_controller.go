package controllers

import (
	"log/slog"
	"net/http"
	"regexp"

	"eventgate/internal/delivery/http/helpers"
	"eventgate/internal/delivery/http/middleware"
	"eventgate/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterSuccessResponse is the success envelope for POST /events/{eventID}/registrations.
type RegisterSuccessResponse struct {
	Data  *domain.RegistrationResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// Register godoc
// @Summary Register the current user for an event
// @Description Registers the authenticated user. Free events return the created attendance (201); paid events return the pending payment to complete (202). Re-invoking while a payment is pending returns the same payment.
// @Tags registration
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegisterSuccessResponse "Registered (free event)"
// @Success 202 {object} controllers.RegisterSuccessResponse "Payment required"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: registration_closed"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered | already_paid | capacity_full"
// @Failure 502 {object} helpers.APIResponse "error.code: payment_gateway_error | email_delivery_failed"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	result, err := c.Service.Register(r.Context(), eventID, userID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}

	if result.PaymentRequired() {
		helpers.WriteJSONSuccess(w, http.StatusAccepted, result)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, result)
}
