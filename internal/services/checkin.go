package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventgate/internal/domain"
)

type checkInService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	tokens         domain.CheckInTokenIssuer

	validity time.Duration
	now      func() time.Time
}

// NewCheckInService creates a CheckInService. validity is the token validity
// window, counted from the moment check-in opens for the attendance (the
// later of the attendance creation and the event start).
func NewCheckInService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	tokens domain.CheckInTokenIssuer,
	validity time.Duration,
) domain.CheckInService {
	return &checkInService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		tokens:         tokens,
		validity:       validity,
		now:            time.Now,
	}
}

// CheckIn applies the five guards in order, each with its own error, so the
// caller can render a precise message: attendance exists, event started,
// not a replay, token not expired, token verifies.
func (s *checkInService) CheckIn(ctx context.Context, eventID, userID, token string) (*domain.Attendance, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	att, err := s.attendanceRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	now := s.now()
	if now.Before(event.StartsAt) {
		return nil, &domain.CheckInTooEarlyError{
			OpensAt: event.StartsAt,
			Wait:    event.StartsAt.Sub(now),
		}
	}

	if att.CheckedIn() || att.TokenUsed {
		return nil, domain.ErrAlreadyCheckedIn
	}

	opens := att.CreatedAt
	if event.StartsAt.After(opens) {
		opens = event.StartsAt
	}
	expiry := opens.Add(s.validity)
	if now.After(expiry) {
		return nil, &domain.TokenExpiredError{ExpiredAt: expiry}
	}

	if !s.tokens.Verify(token, att.TokenHash) {
		return nil, domain.ErrInvalidToken
	}

	if err := s.attendanceRepo.MarkCheckedIn(ctx, att.ID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyCheckedIn) {
			return nil, domain.ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("mark checked in: %w", err)
	}

	att.Status = domain.AttendanceCheckedIn
	att.TokenUsed = true
	att.CheckedInAt = &now
	return att, nil
}
