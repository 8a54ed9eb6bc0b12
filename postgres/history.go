package postgres

import (
	"context"
	"fmt"

	"ticketbooking/entity"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type HistoryRepo struct {
	db *sqlx.DB
}

func NewHistoryRepo(db *sqlx.DB) HistoryRepo {
	return HistoryRepo{
		db: db,
	}
}

// Add is idempotent on the event id, redelivered events are ignored.
func (r HistoryRepo) Add(ctx context.Context, entry entity.HistoryEntry) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO ticket_history
		(event_id, booking_reference, event_type, seat_number, status, occurred_at)
		VALUES (:event_id, :booking_reference, :event_type, :seat_number, :status, :occurred_at)
		ON CONFLICT (event_id) DO NOTHING`, entry)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}

	return nil
}

func (r HistoryRepo) History(ctx context.Context, bookingReference string) ([]entity.HistoryEntry, error) {
	var entries []entity.HistoryEntry
	err := r.db.SelectContext(ctx, &entries, `SELECT event_id, booking_reference, event_type, seat_number, status, occurred_at
		FROM ticket_history
		WHERE booking_reference = $1
		ORDER BY occurred_at, event_id`, bookingReference)
	if err != nil {
		return nil, fmt.Errorf("querying ticket history: %w", err)
	}

	return entries, nil
}
