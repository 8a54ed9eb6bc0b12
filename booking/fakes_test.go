package booking_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"ticketbooking/entity"
)

type seatTakenError struct{}

func (seatTakenError) Error() string   { return "seat taken" }
func (seatTakenError) SeatTaken() bool { return true }

type duplicateRequestError struct{}

func (duplicateRequestError) Error() string          { return "duplicate request" }
func (duplicateRequestError) DuplicateRequest() bool { return true }

type alreadyCancelledError struct{}

func (alreadyCancelledError) Error() string          { return "already cancelled" }
func (alreadyCancelledError) AlreadyCancelled() bool { return true }

// MockStore enforces the same constraints as the Postgres schema: one BOOKED
// ticket per seat and one record per request identifier, both written
// atomically.
type MockStore struct {
	lock    sync.Mutex
	nextID  int64
	tickets map[string]entity.Ticket
	records map[string]entity.IdempotencyRecord

	CreateBookingCalls int
	CancelCalls        int

	// StaleAvailability makes IsSeatBooked always answer false, as a check
	// racing a concurrent commit would.
	StaleAvailability bool
	// CancelRace makes CancelTicket report the ticket as already cancelled.
	CancelRace bool
	Err        error
}

func NewMockStore() *MockStore {
	return &MockStore{
		tickets: map[string]entity.Ticket{},
		records: map[string]entity.IdempotencyRecord{},
	}
}

func (m *MockStore) IsSeatBooked(_ context.Context, seatNumber string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if m.StaleAvailability {
		return false, nil
	}

	return m.seatBooked(seatNumber), nil
}

func (m *MockStore) seatBooked(seatNumber string) bool {
	for _, t := range m.tickets {
		if t.SeatNumber == seatNumber && t.Status == entity.StatusBooked {
			return true
		}
	}
	return false
}

func (m *MockStore) CreateBooking(_ context.Context, ticket entity.Ticket, record entity.IdempotencyRecord) (entity.Ticket, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.CreateBookingCalls++

	if m.Err != nil {
		return entity.Ticket{}, m.Err
	}
	if m.seatBooked(ticket.SeatNumber) {
		return entity.Ticket{}, seatTakenError{}
	}
	if _, ok := m.records[record.RequestID]; ok {
		return entity.Ticket{}, duplicateRequestError{}
	}

	m.nextID++
	now := time.Now().UTC()
	ticket.ID = m.nextID
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	m.tickets[ticket.BookingReference] = ticket
	m.records[record.RequestID] = record

	return ticket, nil
}

func (m *MockStore) TicketByReference(_ context.Context, reference string) (entity.Ticket, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.Ticket{}, m.Err
	}

	t, ok := m.tickets[reference]
	if !ok {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	return t, nil
}

func (m *MockStore) TicketByID(_ context.Context, id int64) (entity.Ticket, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, t := range m.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return entity.Ticket{}, entity.ErrTicketNotFound
}

func (m *MockStore) CancelTicket(_ context.Context, reference string) (entity.Ticket, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.CancelCalls++

	if m.Err != nil {
		return entity.Ticket{}, m.Err
	}

	t, ok := m.tickets[reference]
	if !ok {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	if m.CancelRace || t.Status != entity.StatusBooked {
		return entity.Ticket{}, alreadyCancelledError{}
	}

	t.Status = entity.StatusCancelled
	t.UpdatedAt = time.Now().UTC()
	m.tickets[reference] = t

	return t, nil
}

func (m *MockStore) ListTickets(_ context.Context, offset, limit int) ([]entity.Ticket, int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	all := make([]entity.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return all[offset:end], len(all), nil
}

func (m *MockStore) IdempotencyRecord(_ context.Context, requestID string) (entity.IdempotencyRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.IdempotencyRecord{}, m.Err
	}

	r, ok := m.records[requestID]
	if !ok {
		return entity.IdempotencyRecord{}, entity.ErrIdempotencyRecordNotFound
	}
	return r, nil
}

func (m *MockStore) DeleteRecord(requestID string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.records, requestID)
}

func (m *MockStore) SetErr(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Err = err
}

func (m *MockStore) BookedTicketsForSeat(seatNumber string) []entity.Ticket {
	m.lock.Lock()
	defer m.lock.Unlock()

	var booked []entity.Ticket
	for _, t := range m.tickets {
		if t.SeatNumber == seatNumber && t.Status == entity.StatusBooked {
			booked = append(booked, t)
		}
	}
	return booked
}

func (m *MockStore) TicketCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.tickets)
}

type MockCache struct {
	lock    sync.Mutex
	entries map[string]entity.CacheEntry

	Puts int
	Err  error
}

func NewMockCache() *MockCache {
	return &MockCache{
		entries: map[string]entity.CacheEntry{},
	}
}

func (m *MockCache) Entry(_ context.Context, requestID string) (entity.CacheEntry, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.CacheEntry{}, false, m.Err
	}

	e, ok := m.entries[requestID]
	return e, ok, nil
}

func (m *MockCache) Put(_ context.Context, requestID string, body []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Puts++
	if m.Err != nil {
		return m.Err
	}

	m.entries[requestID] = entity.CacheEntry{
		RequestID: requestID,
		Body:      append([]byte(nil), body...),
	}
	return nil
}

func (m *MockCache) Set(requestID string, body []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.entries[requestID] = entity.CacheEntry{RequestID: requestID, Body: body}
}

func (m *MockCache) Flush() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.entries = map[string]entity.CacheEntry{}
}

func (m *MockCache) Has(requestID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, ok := m.entries[requestID]
	return ok
}

type MockHistory struct {
	Entries map[string][]entity.HistoryEntry
}

func (m MockHistory) History(_ context.Context, bookingReference string) ([]entity.HistoryEntry, error) {
	return m.Entries[bookingReference], nil
}
