package event

import (
	"time"

	"ticketbooking/entity"

	"github.com/ThreeDotsLabs/watermill"
)

type Header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewHeader(idempotencyKey string) Header {
	return Header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type TicketBooked struct {
	Header           Header  `json:"header"`
	BookingReference string  `json:"booking_reference"`
	PassengerName    string  `json:"passenger_name"`
	SeatNumber       string  `json:"seat_number"`
	Amount           float64 `json:"amount"`
}

func NewTicketBooked(requestID string, ticket entity.Ticket) TicketBooked {
	return TicketBooked{
		Header:           NewHeader(requestID),
		BookingReference: ticket.BookingReference,
		PassengerName:    ticket.PassengerName,
		SeatNumber:       ticket.SeatNumber,
		Amount:           ticket.Amount,
	}
}

type TicketCancelled struct {
	Header           Header `json:"header"`
	BookingReference string `json:"booking_reference"`
	PassengerName    string `json:"passenger_name"`
	SeatNumber       string `json:"seat_number"`
}

// Cancellation is a single forward transition, so the booking reference
// doubles as the idempotency key.
func NewTicketCancelled(ticket entity.Ticket) TicketCancelled {
	return TicketCancelled{
		Header:           NewHeader("cancel-" + ticket.BookingReference),
		BookingReference: ticket.BookingReference,
		PassengerName:    ticket.PassengerName,
		SeatNumber:       ticket.SeatNumber,
	}
}
