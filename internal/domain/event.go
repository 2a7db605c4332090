package domain

import (
	"context"
	"time"
)

// EventPhase is the lifecycle phase of an event at a given instant.
type EventPhase string

const (
	PhaseUpcoming EventPhase = "upcoming"
	PhaseOngoing  EventPhase = "ongoing"
	PhaseEnded    EventPhase = "ended"
)

// Event represents a published event. This core treats events as read-only:
// they are created and maintained by the event-management side.
// swagger:model Event
type Event struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Capacity   int       `json:"capacity"`    // 0 means unlimited
	PriceCents int64     `json:"price_cents"` // 0 means free
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	CategoryID string    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Free reports whether registration requires no payment.
func (e *Event) Free() bool { return e.PriceCents == 0 }

// Unlimited reports whether the event has no capacity limit.
func (e *Event) Unlimited() bool { return e.Capacity == 0 }

// Started reports whether the event has started at now.
func (e *Event) Started(now time.Time) bool { return !now.Before(e.StartsAt) }

// Ended reports whether the event has ended at now. The rule is uniformly
// "ended iff ends_at <= now"; every caller that partitions events into
// active vs history must use this method against a single now snapshot.
func (e *Event) Ended(now time.Time) bool { return !e.EndsAt.After(now) }

// Classify returns the lifecycle phase of the event at now. Pure function of
// the two timestamps; callers must reuse one now per request so an event
// cannot flap between phases within a single query.
func (e *Event) Classify(now time.Time) EventPhase {
	switch {
	case now.Before(e.StartsAt):
		return PhaseUpcoming
	case e.Ended(now):
		return PhaseEnded
	default:
		return PhaseOngoing
	}
}

// CanAdmit decides whether one more attendee fits. Capacity 0 is unlimited.
// This is the advisory application-level check; the repository re-checks under
// a row lock before the insert, which is the authoritative admission decision.
func CanAdmit(capacity, currentAttendeeCount int) bool {
	if capacity == 0 {
		return true
	}
	return currentAttendeeCount < capacity
}

// EventRepository defines read access to events. The state machine never
// writes capacity, price, or time fields.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
}
