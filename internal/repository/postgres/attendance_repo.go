package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventgate/internal/domain"
)

type attendanceRepository struct {
	DB *sql.DB
}

func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{DB: db}
}

// CreateAdmit performs the admission decision and the insert as one
// transaction: the event row is locked, the attendee count re-read under the
// lock, and the insert only happens while the lock is held. The unique
// (event_id, user_id) constraint is the final backstop against duplicates.
func (r *attendanceRepository) CreateAdmit(ctx context.Context, att *domain.Attendance, capacity int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission tx: %w", err)
	}
	defer tx.Rollback()

	if capacity > 0 {
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, att.EventID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event row: %w", err)
		}

		var count int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendances WHERE event_id = $1`, att.EventID).Scan(&count)
		if err != nil {
			return fmt.Errorf("count attendees: %w", err)
		}
		if !domain.CanAdmit(capacity, count) {
			return &domain.CapacityFullError{Capacity: capacity}
		}
	}

	query := `
		INSERT INTO attendances (event_id, user_id, status, token_hash, token_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		att.EventID, att.UserID, att.Status, att.TokenHash, att.TokenUsed, att.CreatedAt).
		Scan(&att.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		return err
	}

	return tx.Commit()
}

func (r *attendanceRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Attendance, error) {
	query := `
		SELECT id, event_id, user_id, status, token_hash, token_used, checked_in_at, created_at
		FROM attendances
		WHERE event_id = $1 AND user_id = $2
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, userID))
}

func (r *attendanceRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendances WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *attendanceRepository) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE attendances
		SET status = $2, token_used = TRUE, checked_in_at = $3
		WHERE id = $1 AND status = $4
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.AttendanceCheckedIn, at, domain.AttendanceNotCheckedIn)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// Zero rows means a concurrent check-in won the race.
	if affected == 0 {
		return domain.ErrAlreadyCheckedIn
	}
	return nil
}

func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	return err
}

func (r *attendanceRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Attendance, error) {
	query := `
		SELECT id, event_id, user_id, status, token_hash, token_used, checked_in_at, created_at
		FROM attendances
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []*domain.Attendance
	for rows.Next() {
		att := &domain.Attendance{}
		var checkedInAt sql.NullTime
		if err := rows.Scan(&att.ID, &att.EventID, &att.UserID, &att.Status, &att.TokenHash, &att.TokenUsed, &checkedInAt, &att.CreatedAt); err != nil {
			return nil, err
		}
		if checkedInAt.Valid {
			att.CheckedInAt = &checkedInAt.Time
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if atts == nil {
		atts = []*domain.Attendance{}
	}
	return atts, nil
}

func (r *attendanceRepository) scanOne(row *sql.Row) (*domain.Attendance, error) {
	att := &domain.Attendance{}
	var checkedInAt sql.NullTime
	err := row.Scan(&att.ID, &att.EventID, &att.UserID, &att.Status, &att.TokenHash, &att.TokenUsed, &checkedInAt, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if checkedInAt.Valid {
		att.CheckedInAt = &checkedInAt.Time
	}
	return att, nil
}
