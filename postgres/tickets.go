package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketbooking/entity"
	"ticketbooking/event"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const ticketColumns = `id, booking_reference, passenger_name, seat_number, amount, status, created_at, updated_at`

// Outbox publishes an event as part of a store transaction.
type Outbox interface {
	PublishInTx(ctx context.Context, event any, tx *sql.Tx) error
}

type TicketRepo struct {
	db     *sqlx.DB
	outbox Outbox
}

// NewTicketRepo returns a repository that publishes ticket events through
// outbox. A nil outbox disables event publishing.
func NewTicketRepo(db *sqlx.DB, outbox Outbox) TicketRepo {
	return TicketRepo{
		db:     db,
		outbox: outbox,
	}
}

// CreateBooking inserts the ticket and the idempotency record for the request
// that produced it in one transaction, together with the TicketBooked event.
func (r TicketRepo) CreateBooking(ctx context.Context, ticket entity.Ticket, record entity.IdempotencyRecord) (entity.Ticket, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("beginning transaction: %w", err)
	}

	created, err := r.createBooking(ctx, tx, ticket, record)
	if err != nil {
		return entity.Ticket{}, errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return entity.Ticket{}, fmt.Errorf("committing transaction: %w", err)
	}

	return created, nil
}

func (r TicketRepo) createBooking(ctx context.Context, tx *sqlx.Tx, ticket entity.Ticket, record entity.IdempotencyRecord) (entity.Ticket, error) {
	var created entity.Ticket
	err := tx.GetContext(ctx, &created, `INSERT INTO tickets
		(booking_reference, passenger_name, seat_number, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+ticketColumns,
		ticket.BookingReference, ticket.PassengerName, ticket.SeatNumber, ticket.Amount, ticket.Status)
	if err != nil {
		if constraint, ok := violatedConstraint(err); ok && constraint == seatBookedIndex {
			return entity.Ticket{}, seatTakenError{seatNumber: ticket.SeatNumber}
		}
		return entity.Ticket{}, fmt.Errorf("inserting ticket: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO idempotency_records
		(request_id, request_hash, response, created_at)
		VALUES ($1, $2, $3, $4)`,
		record.RequestID, record.RequestHash, []byte(record.Response), record.CreatedAt)
	if err != nil {
		if constraint, ok := violatedConstraint(err); ok && constraint == idempotencyRecordPK {
			return entity.Ticket{}, duplicateRequestError{requestID: record.RequestID}
		}
		return entity.Ticket{}, fmt.Errorf("inserting idempotency record: %w", err)
	}

	if r.outbox != nil {
		if err := r.outbox.PublishInTx(ctx, event.NewTicketBooked(record.RequestID, created), tx.Tx); err != nil {
			return entity.Ticket{}, fmt.Errorf("publishing ticket booked event: %w", err)
		}
	}

	return created, nil
}

func (r TicketRepo) TicketByReference(ctx context.Context, reference string) (entity.Ticket, error) {
	var t entity.Ticket
	err := r.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE booking_reference = $1`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("querying ticket %s: %w", reference, err)
	}

	return t, nil
}

func (r TicketRepo) TicketByID(ctx context.Context, id int64) (entity.Ticket, error) {
	var t entity.Ticket
	err := r.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("querying ticket %d: %w", id, err)
	}

	return t, nil
}

func (r TicketRepo) IsSeatBooked(ctx context.Context, seatNumber string) (bool, error) {
	var booked bool
	err := r.db.GetContext(ctx, &booked, `SELECT EXISTS (
		SELECT 1 FROM tickets WHERE seat_number = $1 AND status = $2
	)`, seatNumber, entity.StatusBooked)
	if err != nil {
		return false, fmt.Errorf("querying seat %s: %w", seatNumber, err)
	}

	return booked, nil
}

// CancelTicket moves a BOOKED ticket to CANCELLED. The conditional update
// makes concurrent cancellations of one ticket resolve to a single winner; the
// others get an error implementing AlreadyCancelled().
func (r TicketRepo) CancelTicket(ctx context.Context, reference string) (entity.Ticket, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("beginning transaction: %w", err)
	}

	cancelled, err := r.cancelTicket(ctx, tx, reference)
	if err != nil {
		return entity.Ticket{}, errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return entity.Ticket{}, fmt.Errorf("committing transaction: %w", err)
	}

	return cancelled, nil
}

func (r TicketRepo) cancelTicket(ctx context.Context, tx *sqlx.Tx, reference string) (entity.Ticket, error) {
	var t entity.Ticket
	err := tx.GetContext(ctx, &t, `UPDATE tickets
		SET status = $1, updated_at = now()
		WHERE booking_reference = $2 AND status = $3
		RETURNING `+ticketColumns,
		entity.StatusCancelled, reference, entity.StatusBooked)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (
			SELECT 1 FROM tickets WHERE booking_reference = $1
		)`, reference); err != nil {
			return entity.Ticket{}, fmt.Errorf("querying ticket %s: %w", reference, err)
		}
		if !exists {
			return entity.Ticket{}, entity.ErrTicketNotFound
		}
		return entity.Ticket{}, alreadyCancelledError{bookingReference: reference}
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("updating ticket status: %w", err)
	}

	if r.outbox != nil {
		if err := r.outbox.PublishInTx(ctx, event.NewTicketCancelled(t), tx.Tx); err != nil {
			return entity.Ticket{}, fmt.Errorf("publishing ticket cancelled event: %w", err)
		}
	}

	return t, nil
}

func (r TicketRepo) ListTickets(ctx context.Context, offset, limit int) ([]entity.Ticket, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM tickets`); err != nil {
		return nil, 0, fmt.Errorf("counting tickets: %w", err)
	}

	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `SELECT `+ticketColumns+` FROM tickets
		ORDER BY id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying tickets: %w", err)
	}

	return tickets, total, nil
}

func (r TicketRepo) IdempotencyRecord(ctx context.Context, requestID string) (entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := r.db.GetContext(ctx, &rec, `SELECT request_id, request_hash, response, created_at
		FROM idempotency_records WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.IdempotencyRecord{}, entity.ErrIdempotencyRecordNotFound
	}
	if err != nil {
		return entity.IdempotencyRecord{}, fmt.Errorf("querying idempotency record %s: %w", requestID, err)
	}

	return rec, nil
}
