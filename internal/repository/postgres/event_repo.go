package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventgate/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns a read-only EventRepository. Events are written
// by the event-management side; this core only reads them.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, capacity, price_cents, starts_at, ends_at, category_id, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	ev := &domain.Event{}
	var categoryID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&ev.ID, &ev.Title, &ev.Capacity, &ev.PriceCents, &ev.StartsAt, &ev.EndsAt, &categoryID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	ev.CategoryID = categoryID.String
	return ev, nil
}
