package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventgate/internal/domain"
)

type paymentService struct {
	eventRepo      domain.EventRepository
	paymentRepo    domain.PaymentRepository
	attendanceRepo domain.AttendanceRepository
	userRepo       domain.UserRepository
	gateway        domain.PaymentGateway
	tokens         domain.CheckInTokenIssuer
	emails         domain.EmailService
	logger         *slog.Logger

	expiry time.Duration
	now    func() time.Time
}

// NewPaymentService creates a PaymentService reconciling local payments with
// the gateway invoice lifecycle. expiry is how long a created invoice stays
// payable (mirrored from the gateway's own expiry).
func NewPaymentService(
	eventRepo domain.EventRepository,
	paymentRepo domain.PaymentRepository,
	attendanceRepo domain.AttendanceRepository,
	userRepo domain.UserRepository,
	gateway domain.PaymentGateway,
	tokens domain.CheckInTokenIssuer,
	emails domain.EmailService,
	logger *slog.Logger,
	expiry time.Duration,
) domain.PaymentService {
	return &paymentService{
		eventRepo:      eventRepo,
		paymentRepo:    paymentRepo,
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		gateway:        gateway,
		tokens:         tokens,
		emails:         emails,
		logger:         logger,
		expiry:         expiry,
		now:            time.Now,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, eventID, userID string) (*domain.Payment, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Free() {
		return nil, fmt.Errorf("%w: event is free, no payment needed", domain.ErrInvalidInput)
	}

	now := s.now()
	if event.Started(now) {
		return nil, &domain.RegistrationClosedError{StartedAt: event.StartsAt, Now: now}
	}

	if _, err := s.attendanceRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		if _, perr := s.paymentRepo.GetPaidByEventAndUser(ctx, eventID, userID); perr == nil {
			return nil, domain.ErrAlreadyPaid
		}
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	// Idempotent creation: hand back the one non-terminal payment if present.
	if existing, err := s.paymentRepo.GetPendingByEventAndUser(ctx, eventID, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get pending payment: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	invoice, err := s.gateway.CreateInvoice(ctx, event.PriceCents, "Ticket: "+event.Title, user.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway invoice creation failed",
			"event_id", eventID, "user_id", userID, "err", err)
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentGateway, err)
	}

	payment := domain.NewPayment(eventID, userID, invoice.ID, invoice.URL, event.PriceCents, now, now.Add(s.expiry))
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			// A concurrent request created the pending payment first; the
			// partial unique index arbitrated. Return the winner.
			return s.paymentRepo.GetPendingByEventAndUser(ctx, eventID, userID)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

func (s *paymentService) CheckStatus(ctx context.Context, paymentID, userID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if userID != "" && payment.UserID != userID {
		return nil, domain.ErrForbidden
	}

	if payment.Terminal() {
		// A paid payment whose materialization was interrupted (e.g. the
		// token email failed) is finished here on the next poll.
		if payment.Status == domain.PaymentPaid && !payment.Materialized() {
			if err := s.materializeAttendance(ctx, payment); err != nil {
				return payment, err
			}
		}
		return payment, nil
	}

	status, err := s.gateway.GetInvoice(ctx, payment.InvoiceID)
	if err != nil {
		// Transient gateway trouble is absorbed: return last-known local
		// state; a later poll or the webhook will reconcile.
		s.logger.WarnContext(ctx, "gateway unreachable during status poll, keeping local state",
			"payment_id", payment.ID, "invoice_id", payment.InvoiceID, "err", err)
		return payment, nil
	}

	return s.applyInvoiceStatus(ctx, payment, status)
}

func (s *paymentService) HandleWebhook(ctx context.Context, evt domain.WebhookEvent) error {
	var status domain.InvoiceStatus
	switch evt.Event {
	case domain.WebhookInvoicePaid:
		status = domain.InvoicePaid
	case domain.WebhookInvoiceExpired:
		status = domain.InvoiceExpired
	case domain.WebhookInvoiceFailed:
		status = domain.InvoiceFailed
	default:
		return fmt.Errorf("%w: unrecognized webhook event %q", domain.ErrInvalidInput, evt.Event)
	}

	payment, err := s.paymentRepo.GetByInvoiceID(ctx, evt.Data.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get payment by invoice: %w", err)
	}

	_, err = s.applyInvoiceStatus(ctx, payment, status)
	return err
}

// applyInvoiceStatus maps a gateway invoice state onto the local payment and
// runs materialization on entry into paid. Both the polling path and the
// webhook path converge here, so the transition logic exists exactly once.
func (s *paymentService) applyInvoiceStatus(ctx context.Context, payment *domain.Payment, status domain.InvoiceStatus) (*domain.Payment, error) {
	switch status {
	case domain.InvoicePending:
		return payment, nil

	case domain.InvoicePaid:
		if payment.Status != domain.PaymentPaid {
			paidAt := s.now()
			if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentPaid, &paidAt); err != nil {
				return nil, fmt.Errorf("mark payment paid: %w", err)
			}
			payment.Status = domain.PaymentPaid
			payment.PaidAt = &paidAt
		}
		if err := s.materializeAttendance(ctx, payment); err != nil {
			return payment, err
		}
		return payment, nil

	case domain.InvoiceExpired, domain.InvoiceFailed:
		local := domain.PaymentExpired
		if status == domain.InvoiceFailed {
			local = domain.PaymentFailed
		}
		if payment.Status == domain.PaymentPending {
			if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, local, nil); err != nil {
				return nil, fmt.Errorf("mark payment %s: %w", local, err)
			}
			payment.Status = local
		}
		return payment, nil

	default:
		return nil, fmt.Errorf("%w: unknown invoice status %q", domain.ErrInvalidInput, status)
	}
}

// materializeAttendance creates the attendance a successful payment entitles
// the user to, exactly once. Safe to invoke concurrently from the webhook and
// a status poll: the existing-attendance lookup is the idempotency guard and
// the unique (event, user) constraint is the backstop when both race past it.
func (s *paymentService) materializeAttendance(ctx context.Context, payment *domain.Payment) error {
	if payment.Materialized() {
		return nil
	}

	att, err := s.attendanceRepo.GetByEventAndUser(ctx, payment.EventID, payment.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get attendance: %w", err)
	}

	if att == nil {
		att, err = s.createPaidAttendance(ctx, payment)
		if err != nil {
			return err
		}
	}

	linked, err := s.paymentRepo.LinkAttendance(ctx, payment.ID, att.ID)
	if err != nil {
		return fmt.Errorf("link attendance: %w", err)
	}
	payment.AttendanceID = &att.ID

	// Only the caller that performed the link emails the receipt, so a
	// webhook racing a status poll cannot send it twice.
	if linked {
		s.sendReceipt(ctx, payment)
	}
	return nil
}

func (s *paymentService) createPaidAttendance(ctx context.Context, payment *domain.Payment) (*domain.Attendance, error) {
	event, err := s.eventRepo.GetByID(ctx, payment.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	user, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	plaintext, hash, err := s.tokens.Issue(checkInTokenLength)
	if err != nil {
		return nil, fmt.Errorf("issue check-in token: %w", err)
	}

	att := domain.NewAttendance(payment.EventID, payment.UserID, hash, s.now())
	if err := s.attendanceRepo.CreateAdmit(ctx, att, event.Capacity); err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			// Lost the race against the other reconciliation path; adopt the
			// attendance it created.
			return s.attendanceRepo.GetByEventAndUser(ctx, payment.EventID, payment.UserID)
		}
		var full *domain.CapacityFullError
		if errors.As(err, &full) {
			// Deferred attendance means a paid user can meet a full event.
			// Surface it for refund handling rather than oversubscribing.
			s.logger.ErrorContext(ctx, "event full at payment materialization, refund required",
				"payment_id", payment.ID, "event_id", payment.EventID, "user_id", payment.UserID)
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
		// Same invariant as free registration: no attendance without its
		// delivered token. The payment stays paid and unlinked, so the next
		// status poll re-runs materialization with a fresh token.
		if delErr := s.attendanceRepo.Delete(ctx, att.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back attendance after email failure",
				"attendance_id", att.ID, "err", delErr)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailDelivery, err)
	}
	return att, nil
}

func (s *paymentService) sendReceipt(ctx context.Context, payment *domain.Payment) {
	event, err := s.eventRepo.GetByID(ctx, payment.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping receipt email", "payment_id", payment.ID, "err", err)
		return
	}
	user, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping receipt email", "payment_id", payment.ID, "err", err)
		return
	}
	paidAt := s.now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	// Best effort: a lost receipt does not affect the registration.
	if err := s.emails.SendPaymentReceipt(ctx, &domain.PaymentReceiptEmailData{
		Email:       user.Email,
		Name:        user.Name,
		EventTitle:  event.Title,
		AmountCents: payment.AmountCents,
		PaidAt:      paidAt,
	}); err != nil {
		s.logger.WarnContext(ctx, "receipt email failed", "payment_id", payment.ID, "err", err)
	}
}
