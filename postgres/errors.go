package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type seatTakenError struct {
	seatNumber string
}

func (e seatTakenError) Error() string {
	return fmt.Sprintf("seat %s already has a booked ticket", e.seatNumber)
}

func (e seatTakenError) SeatTaken() bool {
	return true
}

type duplicateRequestError struct {
	requestID string
}

func (e duplicateRequestError) Error() string {
	return fmt.Sprintf("idempotency record for request %s already exists", e.requestID)
}

func (e duplicateRequestError) DuplicateRequest() bool {
	return true
}

type alreadyCancelledError struct {
	bookingReference string
}

func (e alreadyCancelledError) Error() string {
	return fmt.Sprintf("ticket %s is already cancelled", e.bookingReference)
}

func (e alreadyCancelledError) AlreadyCancelled() bool {
	return true
}

func violatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return "", false
	}
	return pqErr.Constraint, true
}
