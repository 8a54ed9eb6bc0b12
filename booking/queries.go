package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"ticketbooking/entity"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var ErrInvalidPagination = errors.New("invalid pagination")

// Ticket looks a ticket up by booking reference, or by its numeric id.
func (s *Service) Ticket(ctx context.Context, id string) (entity.Ticket, error) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return s.store.TicketByID(ctx, n)
	}

	return s.store.TicketByReference(ctx, id)
}

func (s *Service) Tickets(ctx context.Context, page, size int) (entity.TicketPage, error) {
	if page < 1 {
		return entity.TicketPage{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidPagination)
	}
	if size < 1 || size > MaxPageSize {
		return entity.TicketPage{}, fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidPagination, MaxPageSize)
	}
	if page-1 > math.MaxInt32/size {
		return entity.TicketPage{}, fmt.Errorf("%w: page is out of range", ErrInvalidPagination)
	}

	tickets, total, err := s.store.ListTickets(ctx, (page-1)*size, size)
	if err != nil {
		return entity.TicketPage{}, fmt.Errorf("listing tickets: %w", err)
	}
	if tickets == nil {
		tickets = []entity.Ticket{}
	}

	return entity.TicketPage{
		Items: tickets,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + size - 1) / size,
	}, nil
}

func (s *Service) History(ctx context.Context, bookingReference string) ([]entity.HistoryEntry, error) {
	if _, err := s.store.TicketByReference(ctx, bookingReference); err != nil {
		return nil, err
	}

	entries, err := s.history.History(ctx, bookingReference)
	if err != nil {
		return nil, fmt.Errorf("reading ticket history: %w", err)
	}
	if entries == nil {
		entries = []entity.HistoryEntry{}
	}

	return entries, nil
}
