package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicatePayment signals that a pending payment already exists for the
// (event, user) pair. Callers re-read and return the existing payment.
var ErrDuplicatePayment = errors.New("pending payment already exists")

// PaymentStatus is the local payment state. pending is the only non-terminal
// state; all transitions out of pending are driven by the gateway (webhook or
// status poll).
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentExpired   PaymentStatus = "expired"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment represents one payment attempt for an (event, user) pair. For paid
// events the attendance is deferred: AttendanceID stays nil until the gateway
// confirms payment and the attendance is materialized. A nil AttendanceID with
// status pending means "intent, no seat reserved yet": unpaid intents never
// hold capacity.
// swagger:model Payment
type Payment struct {
	ID           string        `json:"id"`
	AttendanceID *string       `json:"attendance_id,omitempty"`
	EventID      string        `json:"event_id"`
	UserID       string        `json:"user_id"`
	InvoiceID    string        `json:"invoice_id"`
	AmountCents  int64         `json:"amount_cents"`
	Status       PaymentStatus `json:"status"`
	InvoiceURL   string        `json:"invoice_url"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewPayment creates a pending Payment for the given invoice. ID is set by
// the repository on create.
func NewPayment(eventID, userID, invoiceID, invoiceURL string, amountCents int64, createdAt, expiresAt time.Time) *Payment {
	return &Payment{
		EventID:     eventID,
		UserID:      userID,
		InvoiceID:   invoiceID,
		InvoiceURL:  invoiceURL,
		AmountCents: amountCents,
		Status:      PaymentPending,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}
}

// Terminal reports whether the payment can no longer change state.
func (p *Payment) Terminal() bool { return p.Status != PaymentPending }

// Materialized reports whether the paid flow has produced its attendance.
func (p *Payment) Materialized() bool { return p.AttendanceID != nil }

// PaymentRepository defines storage operations for payments.
type PaymentRepository interface {
	// Create inserts a pending payment. A partial unique index allows at most
	// one pending payment per (event, user); a violation maps to ErrConflict
	// semantics and callers should re-read the existing pending payment.
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*Payment, error)
	// GetPendingByEventAndUser returns the one non-terminal payment for the
	// pair, or ErrNotFound.
	GetPendingByEventAndUser(ctx context.Context, eventID, userID string) (*Payment, error)
	GetPaidByEventAndUser(ctx context.Context, eventID, userID string) (*Payment, error)
	// UpdateStatus transitions a payment out of pending. Rows already in a
	// terminal state are left untouched so racing webhook and poll updates
	// degrade to no-ops.
	UpdateStatus(ctx context.Context, id string, status PaymentStatus, paidAt *time.Time) error
	// LinkAttendance records the attendance a paid payment produced. It
	// reports whether this call performed the link; a payment already
	// linked is left untouched and reports false, so concurrent callers
	// can tell exactly one winner apart.
	LinkAttendance(ctx context.Context, paymentID, attendanceID string) (bool, error)
}

// InvoiceStatus is the gateway-side invoice state.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "PENDING"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceExpired InvoiceStatus = "EXPIRED"
	InvoiceFailed  InvoiceStatus = "FAILED"
)

// Invoice is the gateway's handle for a created invoice.
type Invoice struct {
	ID  string
	URL string
}

// PaymentGateway is the external payment collaborator.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, amountCents int64, description, customerEmail string) (*Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (InvoiceStatus, error)
}

// Webhook event types delivered by the gateway.
const (
	WebhookInvoicePaid    = "invoice.paid"
	WebhookInvoiceExpired = "invoice.expired"
	WebhookInvoiceFailed  = "invoice.failed"
)

// WebhookEvent is the payload of a gateway webhook delivery.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// PaymentService bridges local payments with the gateway invoice lifecycle
// and guarantees exactly one attendance per successfully paid (event, user).
type PaymentService interface {
	// CreatePayment creates (or returns the existing pending) payment for the
	// event. Idempotent per (event, user).
	CreatePayment(ctx context.Context, eventID, userID string) (*Payment, error)
	// CheckStatus reconciles the payment with the gateway. A transient
	// gateway failure returns the last-known local state unchanged.
	CheckStatus(ctx context.Context, paymentID, userID string) (*Payment, error)
	// HandleWebhook applies a gateway webhook event. Unrecognized events are
	// rejected without side effects.
	HandleWebhook(ctx context.Context, evt WebhookEvent) error
}
