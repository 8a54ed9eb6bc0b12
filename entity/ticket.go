package entity

import (
	"encoding/json"
	"errors"
	"time"
)

type TicketStatus string

const (
	StatusBooked    TicketStatus = "BOOKED"
	StatusCancelled TicketStatus = "CANCELLED"
)

var (
	ErrTicketNotFound            = errors.New("ticket not found")
	ErrIdempotencyRecordNotFound = errors.New("idempotency record not found")
)

type Ticket struct {
	ID               int64        `json:"id" db:"id"`
	BookingReference string       `json:"booking_reference" db:"booking_reference"`
	PassengerName    string       `json:"passenger_name" db:"passenger_name"`
	SeatNumber       string       `json:"seat_number" db:"seat_number"`
	Amount           float64      `json:"amount" db:"amount"`
	Status           TicketStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// IdempotencyRecord binds a client request identifier to the exact response
// bytes returned for it. RequestHash fingerprints the canonical request body.
type IdempotencyRecord struct {
	RequestID   string          `db:"request_id"`
	RequestHash string          `db:"request_hash"`
	Response    json.RawMessage `db:"response"`
	CreatedAt   time.Time       `db:"created_at"`
}

type TicketPage struct {
	Items []Ticket `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
	Pages int      `json:"pages"`
}

type HistoryEntry struct {
	EventID          string       `json:"event_id" db:"event_id"`
	BookingReference string       `json:"booking_reference" db:"booking_reference"`
	EventType        string       `json:"event_type" db:"event_type"`
	SeatNumber       string       `json:"seat_number" db:"seat_number"`
	Status           TicketStatus `json:"status" db:"status"`
	OccurredAt       time.Time    `json:"occurred_at" db:"occurred_at"`
}

// CacheEntry is the cached raw body of a request that completed a booking.
// It is only a hint: its presence or absence says nothing certain about the
// idempotency record in the store.
type CacheEntry struct {
	RequestID string
	Hash      string
	Body      []byte
}
