package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventgate/internal/delivery/http/helpers"
	"eventgate/internal/delivery/http/middleware"
	"eventgate/internal/domain"
)

type AttendeeController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

func NewAttendeeController(logger *slog.Logger, svc domain.AttendeeService) *AttendeeController {
	return &AttendeeController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEventsSuccessResponse is the success envelope for the attendee list endpoints.
type ListEventsSuccessResponse struct {
	Data  []*domain.AttendanceWithEvent `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// ListActive godoc
// @Summary Get the current user's active registrations
// @Description Returns registrations for events that have not yet ended (upcoming or ongoing), evaluated against a single time snapshot.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendee/events [get]
func (c *AttendeeController) ListActive(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, false)
}

// ListHistory godoc
// @Summary Get the current user's past registrations
// @Description Returns registrations for events that have ended, evaluated against the same rule as the active view so no event appears in both or neither.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendee/history [get]
func (c *AttendeeController) ListHistory(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, true)
}

func (c *AttendeeController) list(w http.ResponseWriter, r *http.Request, history bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	// One now per request: the partition rule must see a single snapshot.
	now := time.Now()
	var (
		items []*domain.AttendanceWithEvent
		err   error
	)
	if history {
		items, err = c.Service.ListHistory(r.Context(), userID, now)
	} else {
		items, err = c.Service.ListActive(r.Context(), userID, now)
	}
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if items == nil {
		items = []*domain.AttendanceWithEvent{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}
