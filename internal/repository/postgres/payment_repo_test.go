package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"eventgate/internal/domain"
)

var paymentRows = []string{"id", "attendance_id", "event_id", "user_id", "invoice_id", "amount_cents", "status", "invoice_url", "paid_at", "expires_at", "created_at"}

func TestPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	payment := domain.NewPayment("event-1", "user-1", "inv-1", "https://pay.test/inv-1", 2500, createdAt, createdAt.Add(time.Hour))

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payments`).
					WithArgs("event-1", "user-1", "inv-1", int64(2500), string(domain.PaymentPending), "https://pay.test/inv-1", createdAt.Add(time.Hour), createdAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pay-uuid-1"))
			},
		},
		{
			name: "second pending payment rejected by partial index",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payments`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicatePayment,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payments`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewPaymentRepository(db)
			p := *payment
			err = repo.Create(ctx, &p)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, "pay-uuid-1", p.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPaymentRepository_GetPendingByEventAndUser(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows(paymentRows).
			AddRow("pay-1", nil, "event-1", "user-1", "inv-1", int64(2500), string(domain.PaymentPending), "https://pay.test/inv-1", nil, createdAt.Add(time.Hour), createdAt)
		mock.ExpectQuery(`SELECT (.+) FROM payments`).
			WithArgs("event-1", "user-1", string(domain.PaymentPending)).
			WillReturnRows(rows)

		repo := NewPaymentRepository(db)
		p, err := repo.GetPendingByEventAndUser(ctx, "event-1", "user-1")
		require.NoError(t, err)
		require.Equal(t, "pay-1", p.ID)
		require.Nil(t, p.AttendanceID)
		require.Nil(t, p.PaidAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) FROM payments`).
			WithArgs("event-1", "user-1", string(domain.PaymentPending)).
			WillReturnError(sql.ErrNoRows)

		repo := NewPaymentRepository(db)
		_, err = repo.GetPendingByEventAndUser(ctx, "event-1", "user-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByInvoiceID(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	paidAt := createdAt.Add(10 * time.Minute)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(paymentRows).
		AddRow("pay-1", "att-1", "event-1", "user-1", "inv-1", int64(2500), string(domain.PaymentPaid), "https://pay.test/inv-1", paidAt, createdAt.Add(time.Hour), createdAt)
	mock.ExpectQuery(`SELECT (.+) FROM payments`).
		WithArgs("inv-1").
		WillReturnRows(rows)

	repo := NewPaymentRepository(db)
	p, err := repo.GetByInvoiceID(ctx, "inv-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, p.Status)
	require.NotNil(t, p.AttendanceID)
	require.Equal(t, "att-1", *p.AttendanceID)
	require.NotNil(t, p.PaidAt)
	require.Equal(t, paidAt, *p.PaidAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	paidAt := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

	t.Run("pending to paid", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments`).
			WithArgs("pay-1", string(domain.PaymentPaid), paidAt, string(domain.PaymentPending)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPaymentRepository(db)
		require.NoError(t, repo.UpdateStatus(ctx, "pay-1", domain.PaymentPaid, &paidAt))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal row untouched", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments`).
			WithArgs("pay-1", string(domain.PaymentExpired), nil, string(domain.PaymentPending)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPaymentRepository(db)
		require.NoError(t, repo.UpdateStatus(ctx, "pay-1", domain.PaymentExpired, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_LinkAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("links unlinked payment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments SET attendance_id`).
			WithArgs("pay-1", "att-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPaymentRepository(db)
		linked, err := repo.LinkAttendance(ctx, "pay-1", "att-1")
		require.NoError(t, err)
		require.True(t, linked)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already linked reports false", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments SET attendance_id`).
			WithArgs("pay-1", "att-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPaymentRepository(db)
		linked, err := repo.LinkAttendance(ctx, "pay-1", "att-1")
		require.NoError(t, err)
		require.False(t, linked)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
