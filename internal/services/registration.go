package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventgate/internal/domain"
)

// checkInTokenLength is the length of the plaintext check-in credential.
const checkInTokenLength = 32

type registrationService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	paymentRepo    domain.PaymentRepository
	userRepo       domain.UserRepository
	payments       domain.PaymentService
	tokens         domain.CheckInTokenIssuer
	emails         domain.EmailService
	logger         *slog.Logger

	now func() time.Time
}

// NewRegistrationService creates a RegistrationService orchestrating the free
// and paid registration paths.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	paymentRepo domain.PaymentRepository,
	userRepo domain.UserRepository,
	payments domain.PaymentService,
	tokens domain.CheckInTokenIssuer,
	emails domain.EmailService,
	logger *slog.Logger,
) domain.RegistrationService {
	return &registrationService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		paymentRepo:    paymentRepo,
		userRepo:       userRepo,
		payments:       payments,
		tokens:         tokens,
		emails:         emails,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, eventID, userID string) (*domain.RegistrationResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	now := s.now()
	if event.Started(now) {
		return nil, &domain.RegistrationClosedError{StartedAt: event.StartsAt, Now: now}
	}

	if _, err := s.attendanceRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		// For paid events distinguish "registered and paid" from plain
		// duplicate registration so the caller can render the right message.
		if !event.Free() {
			if _, perr := s.paymentRepo.GetPaidByEventAndUser(ctx, eventID, userID); perr == nil {
				return nil, domain.ErrAlreadyPaid
			}
		}
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	// Advisory capacity check. It narrows the race window; the repository
	// re-checks under a row lock on insert, which is authoritative.
	if !event.Unlimited() {
		count, err := s.attendanceRepo.CountByEventID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("count attendees: %w", err)
		}
		if !domain.CanAdmit(event.Capacity, count) {
			return nil, &domain.CapacityFullError{Capacity: event.Capacity}
		}
	}

	if !event.Free() {
		// Paid path: no attendance yet. The seat is materialized only once
		// the gateway confirms payment, so unpaid intents never hold
		// capacity. CreatePayment is idempotent per (event, user).
		payment, err := s.payments.CreatePayment(ctx, eventID, userID)
		if err != nil {
			return nil, err
		}
		return &domain.RegistrationResult{Payment: payment}, nil
	}

	return s.registerFree(ctx, event, userID, now)
}

func (s *registrationService) registerFree(ctx context.Context, event *domain.Event, userID string, now time.Time) (*domain.RegistrationResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	plaintext, hash, err := s.tokens.Issue(checkInTokenLength)
	if err != nil {
		return nil, fmt.Errorf("issue check-in token: %w", err)
	}

	att := domain.NewAttendance(event.ID, userID, hash, now)
	if err := s.attendanceRepo.CreateAdmit(ctx, att, event.Capacity); err != nil {
		var full *domain.CapacityFullError
		if errors.As(err, &full) || errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	if err := s.emails.SendCheckInToken(ctx, &domain.CheckInTokenEmailData{
		Email:         user.Email,
		Name:          user.Name,
		EventTitle:    event.Title,
		EventStartsAt: event.StartsAt,
		Token:         plaintext,
	}); err != nil {
		// The attendance is useless without its delivered token: check-in
		// would be impossible. Roll it back so the user can retry.
		if delErr := s.attendanceRepo.Delete(ctx, att.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back attendance after email failure",
				"attendance_id", att.ID, "err", delErr)
		}
		s.logger.WarnContext(ctx, "check-in token email failed, registration rolled back",
			"event_id", event.ID, "user_id", userID, "err", err)
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailDelivery, err)
	}

	return &domain.RegistrationResult{Attendance: att}, nil
}
