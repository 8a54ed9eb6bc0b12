package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ticketbooking/booking"
	"ticketbooking/entity"

	"github.com/labstack/echo/v4"
)

const (
	headerIdempotencyKey     = "Idempotency-Key"
	headerRequestID          = "X-Request-ID"
	headerIdempotentReplayed = "Idempotent-Replayed"
)

type BookingService interface {
	Book(ctx context.Context, requestID string, body []byte) booking.Reply
	Cancel(ctx context.Context, bookingReference string) booking.Reply
	Ticket(ctx context.Context, id string) (entity.Ticket, error)
	Tickets(ctx context.Context, page, size int) (entity.TicketPage, error)
	History(ctx context.Context, bookingReference string) ([]entity.HistoryEntry, error)
}

type handler struct {
	bookings BookingService
}

var statusByCode = map[string]int{
	entity.CodeBookingCreated:          http.StatusCreated,
	entity.CodeTicketCancelled:         http.StatusOK,
	entity.CodeValidationError:         http.StatusBadRequest,
	entity.CodeSeatUnavailable:         http.StatusConflict,
	entity.CodeInvalidDuplicateRequest: http.StatusUnprocessableEntity,
	entity.CodeTicketNotFound:          http.StatusNotFound,
	entity.CodeTicketAlreadyCancelled:  http.StatusConflict,
	entity.CodeResponseNotFound:        http.StatusInternalServerError,
	entity.CodeInternalError:           http.StatusInternalServerError,
}

func (h handler) PostTicket(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to read request body",
			Internal: fmt.Errorf("reading request body: %w", err),
		}
	}

	requestID := c.Request().Header.Get(headerIdempotencyKey)
	if requestID == "" {
		requestID = c.Request().Header.Get(headerRequestID)
	}

	reply := h.bookings.Book(c.Request().Context(), requestID, body)
	if reply.Kind == booking.KindReplayed {
		c.Response().Header().Set(headerIdempotentReplayed, "true")
	}

	return writeReply(c, reply)
}

func (h handler) DeleteTicket(c echo.Context) error {
	reply := h.bookings.Cancel(c.Request().Context(), c.Param("id"))

	return writeReply(c, reply)
}

func (h handler) GetTicket(c echo.Context) error {
	ticket, err := h.bookings.Ticket(c.Request().Context(), c.Param("id"))
	if errors.Is(err, entity.ErrTicketNotFound) {
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Ticket not found",
		}
	}
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("getting ticket: %w", err),
		}
	}

	return c.JSON(http.StatusOK, ticket)
}

func (h handler) ListTickets(c echo.Context) error {
	page, size := booking.DefaultPage, booking.DefaultPageSize
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("size", &size).
		BindError()
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "page and size must be integers",
			Internal: err,
		}
	}

	tickets, err := h.bookings.Tickets(c.Request().Context(), page, size)
	if errors.Is(err, booking.ErrInvalidPagination) {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  err.Error(),
			Internal: err,
		}
	}
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("listing tickets: %w", err),
		}
	}

	return c.JSON(http.StatusOK, tickets)
}

func (h handler) GetTicketHistory(c echo.Context) error {
	entries, err := h.bookings.History(c.Request().Context(), c.Param("id"))
	if errors.Is(err, entity.ErrTicketNotFound) {
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Ticket not found",
		}
	}
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("getting ticket history: %w", err),
		}
	}

	return c.JSON(http.StatusOK, entries)
}

// writeReply writes the reply bytes untouched, replays must be byte-identical
// to the original answer.
func writeReply(c echo.Context, reply booking.Reply) error {
	body, err := reply.Body()
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("encoding reply: %w", err),
		}
	}

	status, ok := statusByCode[reply.Response.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	return c.JSONBlob(status, body)
}
