package domain

import (
	"context"
	"fmt"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
// Failure is synchronous: callers that created local state to trigger the
// send must roll it back when Send fails.
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// CheckInTokenEmailData holds data for the check-in token email. Token is the
// plaintext credential; this email is the only place it ever appears.
type CheckInTokenEmailData struct {
	Email         string
	Name          string
	EventTitle    string
	EventStartsAt time.Time
	Token         string
}

// PaymentReceiptEmailData holds data for the payment confirmation email.
type PaymentReceiptEmailData struct {
	Email       string
	Name        string
	EventTitle  string
	AmountCents int64
	PaidAt      time.Time
}

// Amount formats the paid amount in major units for templates.
func (d *PaymentReceiptEmailData) Amount() string {
	return fmt.Sprintf("%.2f", float64(d.AmountCents)/100)
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendCheckInToken(ctx context.Context, data *CheckInTokenEmailData) error
	SendPaymentReceipt(ctx context.Context, data *PaymentReceiptEmailData) error
}
