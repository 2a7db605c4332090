package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventgate/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and
// template renderer. Sending is synchronous: a failure propagates to the
// caller, which may need to roll back the state that triggered the send.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendCheckInToken sends the one-time check-in credential. This is the only
// place the plaintext token leaves the process.
func (s *emailService) SendCheckInToken(ctx context.Context, data *domain.CheckInTokenEmailData) error {
	if data == nil {
		return fmt.Errorf("check-in token email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("checkin_token", data)
	if err != nil {
		return fmt.Errorf("failed to render checkin_token template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send check-in token email: %w", err)
	}
	s.logger.InfoContext(ctx, "check-in token email sent", "to", data.Email, "event", data.EventTitle)
	return nil
}

// SendPaymentReceipt sends the payment confirmation email.
func (s *emailService) SendPaymentReceipt(ctx context.Context, data *domain.PaymentReceiptEmailData) error {
	if data == nil {
		return fmt.Errorf("payment receipt email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("payment_receipt", data)
	if err != nil {
		return fmt.Errorf("failed to render payment_receipt template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send payment receipt email: %w", err)
	}
	s.logger.InfoContext(ctx, "payment receipt email sent", "to", data.Email, "event", data.EventTitle)
	return nil
}
