package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventgate/internal/delivery/http/helpers"
	"eventgate/internal/delivery/http/middleware"
	"eventgate/internal/domain"
)

type CheckInController struct {
	Logger  *slog.Logger
	Service domain.CheckInService
}

func NewCheckInController(logger *slog.Logger, svc domain.CheckInService) *CheckInController {
	return &CheckInController{
		Logger:  logger,
		Service: svc,
	}
}

// CheckInRequest is the request body for POST /events/{eventID}/checkin.
type CheckInRequest struct {
	Token string `json:"token"`
}

// Validate implements helpers.Validator.
func (r *CheckInRequest) Validate() []string {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return []string{"token is required"}
	}
	return nil
}

// CheckInSuccessResponse is the success envelope for POST /events/{eventID}/checkin.
type CheckInSuccessResponse struct {
	Data  *domain.Attendance `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// CheckIn godoc
// @Summary Check in to an event with a one-time token
// @Description Validates the emailed check-in token and marks the attendance as checked in. Each failure mode has its own error code so the client can render a precise message.
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.CheckInRequest true "Check-in token"
// @Success 200 {object} controllers.CheckInSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_token | bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: checkin_too_early"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_checked_in"
// @Failure 410 {object} helpers.APIResponse "error.code: token_expired"
// @Router /events/{eventID}/checkin [post]
func (c *CheckInController) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}

	var req CheckInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	att, err := c.Service.CheckIn(r.Context(), eventID, userID, req.Token)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, att)
}
