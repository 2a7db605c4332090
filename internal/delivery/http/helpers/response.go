package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventgate/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternalError     = "internal_error"
	ErrCodeAlreadyRegistered = "already_registered"
	ErrCodeAlreadyPaid       = "already_paid"
	ErrCodeCapacityFull      = "capacity_full"
	ErrCodeRegClosed         = "registration_closed"
	ErrCodeCheckInTooEarly   = "checkin_too_early"
	ErrCodeTokenExpired      = "token_expired"
	ErrCodeInvalidToken      = "invalid_token"
	ErrCodeAlreadyCheckedIn  = "already_checked_in"
	ErrCodeConflict          = "conflict"
	ErrCodePaymentGateway    = "payment_gateway_error"
	ErrCodeEmailDelivery     = "email_delivery_failed"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode,
// and encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode,
// and encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// WriteDomainError maps the shared domain error taxonomy to HTTP responses.
// The error's own message is used so guard failures keep their context
// (remaining wait, capacity, expiry time). Returns false for errors outside
// the taxonomy; the caller should log those and respond 500.
func WriteDomainError(w http.ResponseWriter, err error) bool {
	var (
		full     *domain.CapacityFullError
		closed   *domain.RegistrationClosedError
		tooEarly *domain.CheckInTooEarlyError
		expired  *domain.TokenExpiredError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.As(err, &full):
		WriteJSONError(w, http.StatusConflict, ErrCodeCapacityFull, full.Error())
	case errors.As(err, &closed):
		WriteJSONError(w, http.StatusForbidden, ErrCodeRegClosed, closed.Error())
	case errors.As(err, &tooEarly):
		WriteJSONError(w, http.StatusForbidden, ErrCodeCheckInTooEarly, tooEarly.Error())
	case errors.As(err, &expired):
		WriteJSONError(w, http.StatusGone, ErrCodeTokenExpired, expired.Error())
	case errors.Is(err, domain.ErrAlreadyRegistered):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyRegistered, err.Error())
	case errors.Is(err, domain.ErrAlreadyPaid):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyPaid, err.Error())
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyCheckedIn, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeInvalidToken, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrBadCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrPaymentGateway):
		WriteJSONError(w, http.StatusBadGateway, ErrCodePaymentGateway, err.Error())
	case errors.Is(err, domain.ErrEmailDelivery):
		WriteJSONError(w, http.StatusBadGateway, ErrCodeEmailDelivery, err.Error())
	default:
		return false
	}
	return true
}
