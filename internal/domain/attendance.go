package domain

import (
	"context"
	"time"
)

// AttendanceStatus is the check-in state of a registration.
type AttendanceStatus string

const (
	AttendanceNotCheckedIn AttendanceStatus = "not_checked_in"
	AttendanceCheckedIn    AttendanceStatus = "checked_in"
)

// Attendance represents one user's registration for one event. At most one
// Attendance exists per (event, user); the database enforces this with a
// unique constraint. Only the hash of the check-in token is stored, never
// the plaintext.
// swagger:model Attendance
type Attendance struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	UserID      string           `json:"user_id"`
	Status      AttendanceStatus `json:"status"`
	TokenHash   string           `json:"-"`
	TokenUsed   bool             `json:"token_used"`
	CheckedInAt *time.Time       `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewAttendance creates an Attendance in the not-checked-in state. ID is set
// by the repository on create.
func NewAttendance(eventID, userID, tokenHash string, createdAt time.Time) *Attendance {
	return &Attendance{
		EventID:   eventID,
		UserID:    userID,
		Status:    AttendanceNotCheckedIn,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
	}
}

// CheckedIn reports whether the attendance is in the terminal checked-in state.
func (a *Attendance) CheckedIn() bool { return a.Status == AttendanceCheckedIn }

// AttendanceRepository defines storage operations for attendances.
type AttendanceRepository interface {
	// CreateAdmit inserts the attendance as a single admission decision: it
	// locks the event row, re-counts attendees, and inserts only if capacity
	// allows (capacity 0 admits always). Returns *CapacityFullError when the
	// event is full and ErrAlreadyRegistered on a (event, user) duplicate.
	CreateAdmit(ctx context.Context, att *Attendance, capacity int) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Attendance, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	// MarkCheckedIn transitions the attendance to checked-in and marks the
	// token used. It only updates rows still in the not-checked-in state and
	// returns ErrAlreadyCheckedIn if the row was already transitioned.
	MarkCheckedIn(ctx context.Context, id string, at time.Time) error
	// Delete removes the attendance. Used only as the compensating rollback
	// when the token email could not be delivered.
	Delete(ctx context.Context, id string) error
	ListByUserID(ctx context.Context, userID string) ([]*Attendance, error)
}

// CheckInTokenIssuer issues and verifies one-time check-in credentials.
// Issue returns the plaintext (sent to the user once, by email) and its
// one-way hash (the only value persisted). Verify must compare in constant
// time and reports only valid/invalid; expiry is a separate time check done
// by the caller.
type CheckInTokenIssuer interface {
	Issue(length int) (plaintext, hash string, err error)
	Verify(plaintext, hash string) bool
}

// RegistrationResult is the outcome of a registration attempt. Exactly one
// of Attendance (free event, registered immediately) or Payment (paid event,
// attendance deferred until the payment settles) is set.
type RegistrationResult struct {
	Attendance *Attendance `json:"attendance,omitempty"`
	Payment    *Payment    `json:"payment,omitempty"`
}

// PaymentRequired reports whether the caller must complete a payment before
// the registration materializes.
func (r *RegistrationResult) PaymentRequired() bool { return r.Payment != nil }

// RegistrationService orchestrates the free and paid registration paths.
type RegistrationService interface {
	// Register registers the user for the event. For free events it creates
	// the attendance and emails the check-in token; for paid events it
	// returns the pending payment to complete (idempotent: an existing
	// pending payment is returned unchanged).
	Register(ctx context.Context, eventID, userID string) (*RegistrationResult, error)
}

// CheckInService validates a check-in token and transitions the attendance.
type CheckInService interface {
	CheckIn(ctx context.Context, eventID, userID, token string) (*Attendance, error)
}

// AttendanceWithEvent bundles a registration with its event for read views.
type AttendanceWithEvent struct {
	Attendance *Attendance `json:"attendance"`
	Event      *Event      `json:"event"`
}

// AttendeeService provides the read-side views over a user's registrations.
// ListActive and ListHistory form a strict bipartition for a fixed now.
type AttendeeService interface {
	ListActive(ctx context.Context, userID string, now time.Time) ([]*AttendanceWithEvent, error)
	ListHistory(ctx context.Context, userID string, now time.Time) ([]*AttendanceWithEvent, error)
}
