package booking

import (
	"context"
	"fmt"
)

type SeatLookup interface {
	IsSeatBooked(ctx context.Context, seatNumber string) (bool, error)
}

// AvailabilityChecker answers from the store's committed state on every call.
// The seat index in the store remains the final arbiter under concurrent
// bookings; this check only lets the common case fail fast.
type AvailabilityChecker struct {
	seats SeatLookup
}

func NewAvailabilityChecker(seats SeatLookup) AvailabilityChecker {
	return AvailabilityChecker{seats: seats}
}

func (c AvailabilityChecker) IsAvailable(ctx context.Context, seatNumber string) (bool, error) {
	booked, err := c.seats.IsSeatBooked(ctx, seatNumber)
	if err != nil {
		return false, fmt.Errorf("checking seat %s: %w", seatNumber, err)
	}

	return !booked, nil
}
