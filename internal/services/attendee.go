package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventgate/internal/domain"
)

type attendeeService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
}

// NewAttendeeService creates an AttendeeService for the read-side views.
func NewAttendeeService(eventRepo domain.EventRepository, attendanceRepo domain.AttendanceRepository) domain.AttendeeService {
	return &attendeeService{eventRepo: eventRepo, attendanceRepo: attendanceRepo}
}

func (s *attendeeService) ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.AttendanceWithEvent, error) {
	return s.listPartition(ctx, userID, now, false)
}

func (s *attendeeService) ListHistory(ctx context.Context, userID string, now time.Time) ([]*domain.AttendanceWithEvent, error) {
	return s.listPartition(ctx, userID, now, true)
}

// listPartition splits the user's registrations on Event.Ended against the
// single now passed in, so the two views form a strict bipartition: every
// attendance lands in exactly one of them.
func (s *attendeeService) listPartition(ctx context.Context, userID string, now time.Time, ended bool) ([]*domain.AttendanceWithEvent, error) {
	atts, err := s.attendanceRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}

	eventsByID := make(map[string]*domain.Event)
	result := []*domain.AttendanceWithEvent{}

	for _, att := range atts {
		ev, ok := eventsByID[att.EventID]
		if !ok {
			ev, err = s.eventRepo.GetByID(ctx, att.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// Event gone but registration remains; skip the entry.
					continue
				}
				return nil, fmt.Errorf("get event for attendance: %w", err)
			}
			eventsByID[att.EventID] = ev
		}
		if ev.Ended(now) != ended {
			continue
		}
		result = append(result, &domain.AttendanceWithEvent{
			Attendance: att,
			Event:      ev,
		})
	}

	return result, nil
}
