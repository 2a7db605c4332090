package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across services. Guard failures are expected outcomes
// and are returned as values, never panics.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrAlreadyPaid       = errors.New("already registered and paid")
	ErrAlreadyCheckedIn  = errors.New("already checked in")
	ErrInvalidToken      = errors.New("invalid check-in token")
	ErrPaymentGateway    = errors.New("payment gateway unavailable")
	ErrEmailDelivery     = errors.New("email delivery failed")
)

// RegistrationClosedError is returned when a registration attempt arrives at or
// after the event start time, regardless of remaining capacity.
type RegistrationClosedError struct {
	StartedAt time.Time
	Now       time.Time
}

func (e *RegistrationClosedError) Error() string {
	return fmt.Sprintf("registration closed: event started %s ago", e.Now.Sub(e.StartedAt).Round(time.Second))
}

// CapacityFullError is returned when an event has no seats left.
type CapacityFullError struct {
	Capacity int
}

func (e *CapacityFullError) Error() string {
	return fmt.Sprintf("event is full: capacity of %d reached", e.Capacity)
}

// CheckInTooEarlyError is returned for check-in attempts before the event starts.
// Wait tells the caller how long until check-in opens.
type CheckInTooEarlyError struct {
	OpensAt time.Time
	Wait    time.Duration
}

func (e *CheckInTooEarlyError) Error() string {
	return fmt.Sprintf("check-in opens in %s", e.Wait.Round(time.Second))
}

// TokenExpiredError is returned when the check-in token validity window has passed.
type TokenExpiredError struct {
	ExpiredAt time.Time
}

func (e *TokenExpiredError) Error() string {
	return fmt.Sprintf("check-in token expired at %s", e.ExpiredAt.Format(time.RFC3339))
}
