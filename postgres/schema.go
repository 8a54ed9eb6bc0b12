package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	seatBookedIndex     = "tickets_seat_booked_idx"
	idempotencyRecordPK = "idempotency_records_pkey"
)

const schemaLockID = 72_460_113

// InitialiseDB creates the schema. Concurrent callers are serialised on an
// advisory lock, CREATE ... IF NOT EXISTS alone races on the catalog.
func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := initialiseSchema(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}

	return nil
}

func initialiseSchema(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("locking schema: %w", err)
	}

	if err := CreateTicketsTable(ctx, tx); err != nil {
		return fmt.Errorf("creating tickets table: %w", err)
	}

	if err := CreateIdempotencyRecordsTable(ctx, tx); err != nil {
		return fmt.Errorf("creating idempotency records table: %w", err)
	}

	if err := CreateTicketHistoryTable(ctx, tx); err != nil {
		return fmt.Errorf("creating ticket history table: %w", err)
	}

	return nil
}

// The partial unique index is what guarantees a single BOOKED ticket per seat
// when availability checks race.
func CreateTicketsTable(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		booking_reference VARCHAR(50) NOT NULL UNIQUE,
		passenger_name VARCHAR(100) NOT NULL,
		seat_number VARCHAR(10) NOT NULL,
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS `+seatBookedIndex+`
		ON tickets (seat_number) WHERE status = 'BOOKED';`)
	return err
}

// Responses are stored as BYTEA rather than JSONB so replays are byte-identical.
func CreateIdempotencyRecordsTable(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS idempotency_records (
		request_id VARCHAR(255) NOT NULL,
		request_hash CHAR(64) NOT NULL,
		response BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		CONSTRAINT `+idempotencyRecordPK+` PRIMARY KEY (request_id)
	);`)
	return err
}

func CreateTicketHistoryTable(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ticket_history (
		event_id VARCHAR(64) PRIMARY KEY,
		booking_reference VARCHAR(50) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		seat_number VARCHAR(10) NOT NULL,
		status VARCHAR(16) NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ticket_history_reference_idx
		ON ticket_history (booking_reference, occurred_at);`)
	return err
}
