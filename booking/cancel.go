package booking

import (
	"context"
	"errors"

	"ticketbooking/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// Cancel moves a BOOKED ticket to CANCELLED. Repeated calls are guarded by the
// ticket status alone and report TICKET_ALREADY_CANCELLED.
func (s *Service) Cancel(ctx context.Context, bookingReference string) Reply {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	logger := log.FromContext(ctx).WithField("booking_reference", bookingReference)

	ticket, err := s.store.TicketByReference(ctx, bookingReference)
	if errors.Is(err, entity.ErrTicketNotFound) {
		return reject(entity.CodeTicketNotFound, "Ticket not found")
	}
	if err != nil {
		return s.internalError(logger, "reading ticket", err)
	}
	if ticket.Status == entity.StatusCancelled {
		return alreadyCancelled()
	}

	updated, err := s.store.CancelTicket(ctx, bookingReference)
	switch {
	case isAlreadyCancelled(err):
		return alreadyCancelled()
	case errors.Is(err, entity.ErrTicketNotFound):
		return reject(entity.CodeTicketNotFound, "Ticket not found")
	case err != nil:
		return s.internalError(logger, "cancelling ticket", err)
	}

	logger.WithField("seat_number", updated.SeatNumber).Info("Ticket cancelled")

	return Reply{
		Kind: KindCancelled,
		Response: entity.BookingResponse{
			Status:  entity.ResponseSuccess,
			Code:    entity.CodeTicketCancelled,
			Message: "Ticket cancelled successfully",
			TicketDetails: &entity.TicketDetails{
				BookingReference: updated.BookingReference,
				PassengerName:    updated.PassengerName,
				SeatNumber:       updated.SeatNumber,
				Status:           updated.Status,
			},
		},
	}
}

func alreadyCancelled() Reply {
	return reject(entity.CodeTicketAlreadyCancelled, "Ticket is already cancelled")
}
