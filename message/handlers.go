package message

import (
	"context"
	"fmt"

	"ticketbooking/entity"
	"ticketbooking/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type HistoryRecorder interface {
	Add(ctx context.Context, entry entity.HistoryEntry) error
}

// Events are delivered at least once. The header id keys the history entry,
// so a redelivery rewrites nothing.
func handleRecordTicketBooked(r HistoryRecorder) func(ctx context.Context, e *event.TicketBooked) error {
	return func(ctx context.Context, e *event.TicketBooked) error {
		log.FromContext(ctx).WithField("booking_reference", e.BookingReference).Info("Recording booked ticket")

		entry := entity.HistoryEntry{
			EventID:          e.Header.ID,
			BookingReference: e.BookingReference,
			EventType:        "TicketBooked",
			SeatNumber:       e.SeatNumber,
			Status:           entity.StatusBooked,
			OccurredAt:       e.Header.PublishedAt,
		}
		if err := r.Add(ctx, entry); err != nil {
			return fmt.Errorf("recording ticket booked: %w", err)
		}

		return nil
	}
}

func handleRecordTicketCancelled(r HistoryRecorder) func(ctx context.Context, e *event.TicketCancelled) error {
	return func(ctx context.Context, e *event.TicketCancelled) error {
		log.FromContext(ctx).WithField("booking_reference", e.BookingReference).Info("Recording cancelled ticket")

		entry := entity.HistoryEntry{
			EventID:          e.Header.ID,
			BookingReference: e.BookingReference,
			EventType:        "TicketCancelled",
			SeatNumber:       e.SeatNumber,
			Status:           entity.StatusCancelled,
			OccurredAt:       e.Header.PublishedAt,
		}
		if err := r.Add(ctx, entry); err != nil {
			return fmt.Errorf("recording ticket cancelled: %w", err)
		}

		return nil
	}
}
