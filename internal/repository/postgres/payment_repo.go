package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventgate/internal/domain"
)

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{DB: db}
}

const paymentColumns = `id, attendance_id, event_id, user_id, invoice_id, amount_cents, status, invoice_url, paid_at, expires_at, created_at`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (event_id, user_id, invoice_id, amount_cents, status, invoice_url, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.EventID, p.UserID, p.InvoiceID, p.AmountCents, p.Status, p.InvoiceURL, p.ExpiresAt, p.CreatedAt).
		Scan(&p.ID)
	if err != nil {
		// The partial unique index on (event_id, user_id) WHERE status =
		// 'pending' rejects a second concurrent pending payment.
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePayment
		}
		return err
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *paymentRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, invoiceID))
}

func (r *paymentRepository) GetPendingByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE event_id = $1 AND user_id = $2 AND status = $3
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, userID, domain.PaymentPending))
}

func (r *paymentRepository) GetPaidByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE event_id = $1 AND user_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, userID, domain.PaymentPaid))
}

// UpdateStatus transitions a payment out of pending. Rows already terminal
// are left untouched, so a webhook and a poll applying the same transition
// concurrently degrade to one update and one no-op.
func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) error {
	query := `
		UPDATE payments
		SET status = $2, paid_at = COALESCE($3, paid_at)
		WHERE id = $1 AND status = $4
	`
	_, err := r.DB.ExecContext(ctx, query, id, status, paidAt, domain.PaymentPending)
	return err
}

func (r *paymentRepository) LinkAttendance(ctx context.Context, paymentID, attendanceID string) (bool, error) {
	query := `UPDATE payments SET attendance_id = $2 WHERE id = $1 AND attendance_id IS NULL`
	res, err := r.DB.ExecContext(ctx, query, paymentID, attendanceID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *paymentRepository) scanOne(row *sql.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	var attendanceID sql.NullString
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &attendanceID, &p.EventID, &p.UserID, &p.InvoiceID, &p.AmountCents, &p.Status, &p.InvoiceURL, &paidAt, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if attendanceID.Valid {
		p.AttendanceID = &attendanceID.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return p, nil
}
