package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ticketbooking/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type TicketStore interface {
	SeatLookup

	// CreateBooking stores the ticket and its idempotency record in a single
	// transaction. Errors implementing SeatTaken() or DuplicateRequest()
	// report the unique constraint that rejected the write.
	CreateBooking(ctx context.Context, ticket entity.Ticket, record entity.IdempotencyRecord) (entity.Ticket, error)
	TicketByReference(ctx context.Context, reference string) (entity.Ticket, error)
	TicketByID(ctx context.Context, id int64) (entity.Ticket, error)
	CancelTicket(ctx context.Context, reference string) (entity.Ticket, error)
	ListTickets(ctx context.Context, offset, limit int) ([]entity.Ticket, int, error)
	IdempotencyRecord(ctx context.Context, requestID string) (entity.IdempotencyRecord, error)
}

type RequestCache interface {
	Entry(ctx context.Context, requestID string) (entity.CacheEntry, bool, error)
	Put(ctx context.Context, requestID string, body []byte) error
}

type HistoryStore interface {
	History(ctx context.Context, bookingReference string) ([]entity.HistoryEntry, error)
}

type Service struct {
	store        TicketStore
	cache        RequestCache
	history      HistoryStore
	availability AvailabilityChecker
	timeout      time.Duration

	inflight singleflight.Group
}

func NewService(store TicketStore, cache RequestCache, history HistoryStore, timeout time.Duration) *Service {
	return &Service{
		store:        store,
		cache:        cache,
		history:      history,
		availability: NewAvailabilityChecker(store),
		timeout:      timeout,
	}
}

// Book runs the idempotent booking protocol for one request identifier.
func (s *Service) Book(ctx context.Context, requestID string, body []byte) Reply {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return reject(entity.CodeValidationError, "Missing request identifier")
	}
	if !utf8.ValidString(requestID) || utf8.RuneCountInString(requestID) > MaxRequestIDLen {
		return reject(entity.CodeValidationError, fmt.Sprintf("Request identifier must be valid UTF-8 of at most %d characters", MaxRequestIDLen))
	}

	hash := entity.RequestFingerprint(body)
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"request_id":   requestID,
		"request_hash": hash,
	})

	// Identical requests racing in this process share one execution. The
	// leader is detached from its caller's cancellation so that followers
	// are not failed by a client that went away.
	leader := false
	v, _, _ := s.inflight.Do(requestID+":"+hash, func() (any, error) {
		leader = true

		flightCtx, cancel := s.withTimeout(context.WithoutCancel(ctx))
		defer cancel()

		return s.book(flightCtx, logger, requestID, body, hash), nil
	})

	reply := v.(Reply)
	if !leader && reply.Kind == KindCreated {
		reply.Kind = KindReplayed
	}

	logger.WithFields(logrus.Fields{
		"result": reply.Kind.String(),
		"code":   reply.Response.Code,
	}).Info("Booking request handled")

	return reply
}

func (s *Service) book(ctx context.Context, logger *logrus.Entry, requestID string, body []byte, hash string) Reply {
	entry, found, err := s.cache.Entry(ctx, requestID)
	if err != nil {
		logger.WithError(err).Warn("Request cache lookup failed, deciding from the store")
		found = false
	}

	if found {
		if !sameBody(entry.Body, body) {
			return duplicateMismatch()
		}

		record, err := s.store.IdempotencyRecord(ctx, requestID)
		if errors.Is(err, entity.ErrIdempotencyRecordNotFound) {
			logger.Error("Request identifier is cached but no response record exists")
			return reject(entity.CodeResponseNotFound, "Original response not found for duplicate request")
		}
		if err != nil {
			return s.internalError(logger, "reading idempotency record", err)
		}

		return s.replay(logger, record)
	}

	// The cache may have expired or lost the entry, the store decides.
	record, err := s.store.IdempotencyRecord(ctx, requestID)
	if err == nil {
		return s.replayRecord(ctx, logger, requestID, body, hash, record)
	}
	if !errors.Is(err, entity.ErrIdempotencyRecordNotFound) {
		return s.internalError(logger, "reading idempotency record", err)
	}

	return s.bookNew(ctx, logger, requestID, body, hash)
}

func (s *Service) bookNew(ctx context.Context, logger *logrus.Entry, requestID string, body []byte, hash string) Reply {
	req, err := parseRequest(body)
	if err != nil {
		return reject(entity.CodeValidationError, err.Error())
	}
	logger = logger.WithField("seat_number", req.SeatNumber)

	available, err := s.availability.IsAvailable(ctx, req.SeatNumber)
	if err != nil {
		return s.internalError(logger, "checking seat availability", err)
	}
	if !available {
		// An identical retry handled elsewhere may be what holds the seat.
		return s.afterLostRace(ctx, logger, requestID, body, hash, seatUnavailable())
	}

	ticket := entity.Ticket{
		BookingReference: uuid.NewString(),
		PassengerName:    req.PassengerName,
		SeatNumber:       req.SeatNumber,
		Amount:           req.Amount,
		Status:           entity.StatusBooked,
	}

	response := bookingCreated(ticket)
	raw, err := json.Marshal(response)
	if err != nil {
		return s.internalError(logger, "marshalling booking response", err)
	}

	record := entity.IdempotencyRecord{
		RequestID:   requestID,
		RequestHash: hash,
		Response:    raw,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.store.CreateBooking(ctx, ticket, record); err != nil {
		switch {
		case isSeatTaken(err):
			// The winner of the seat may be an identical retry of this
			// request running elsewhere; its record is committed by now.
			return s.afterLostRace(ctx, logger, requestID, body, hash, seatUnavailable())
		case isDuplicateRequest(err):
			return s.afterLostRace(ctx, logger, requestID, body, hash, failure())
		default:
			return s.internalError(logger, "creating booking", err)
		}
	}

	s.remember(ctx, logger, requestID, body)

	logger.WithField("booking_reference", ticket.BookingReference).Info("Ticket booked")

	return Reply{
		Kind:     KindCreated,
		Response: response,
		Raw:      raw,
	}
}

func (s *Service) afterLostRace(ctx context.Context, logger *logrus.Entry, requestID string, body []byte, hash string, otherwise Reply) Reply {
	record, err := s.store.IdempotencyRecord(ctx, requestID)
	if errors.Is(err, entity.ErrIdempotencyRecordNotFound) {
		if otherwise.Kind == KindFailed {
			logger.Error("Request identifier rejected as duplicate but no record exists")
		}
		return otherwise
	}
	if err != nil {
		return s.internalError(logger, "reading idempotency record after conflict", err)
	}

	return s.replayRecord(ctx, logger, requestID, body, hash, record)
}

func (s *Service) replayRecord(ctx context.Context, logger *logrus.Entry, requestID string, body []byte, hash string, record entity.IdempotencyRecord) Reply {
	if record.RequestHash != hash {
		return duplicateMismatch()
	}

	s.remember(ctx, logger, requestID, body)

	return s.replay(logger, record)
}

func (s *Service) replay(logger *logrus.Entry, record entity.IdempotencyRecord) Reply {
	var response entity.BookingResponse
	if err := json.Unmarshal(record.Response, &response); err != nil {
		logger.WithError(err).Warn("Stored response is not a booking response, replaying raw bytes")
	}

	return Reply{
		Kind:     KindReplayed,
		Response: response,
		Raw:      record.Response,
	}
}

// remember writes the cache entry. The cache is only an accelerant, so a
// failed write is logged and otherwise ignored.
func (s *Service) remember(ctx context.Context, logger *logrus.Entry, requestID string, body []byte) {
	if err := s.cache.Put(ctx, requestID, body); err != nil {
		logger.WithError(err).Warn("Failed to cache request")
	}
}

func (s *Service) internalError(logger *logrus.Entry, action string, err error) Reply {
	logger.WithError(err).Errorf("Failed %s", action)
	return failure()
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func bookingCreated(ticket entity.Ticket) entity.BookingResponse {
	return entity.BookingResponse{
		Status:           entity.ResponseSuccess,
		Code:             entity.CodeBookingCreated,
		Message:          "Ticket booked successfully",
		BookingReference: ticket.BookingReference,
		TicketDetails: &entity.TicketDetails{
			PassengerName: ticket.PassengerName,
			SeatNumber:    ticket.SeatNumber,
			Amount:        ticket.Amount,
			Status:        ticket.Status,
		},
	}
}

func seatUnavailable() Reply {
	return reject(entity.CodeSeatUnavailable, "Seat is not available")
}

func duplicateMismatch() Reply {
	return reject(entity.CodeInvalidDuplicateRequest, "Request body does not match original request")
}

func isSeatTaken(err error) bool {
	var e interface{ SeatTaken() bool }
	return errors.As(err, &e) && e.SeatTaken()
}

func isDuplicateRequest(err error) bool {
	var e interface{ DuplicateRequest() bool }
	return errors.As(err, &e) && e.DuplicateRequest()
}

func isAlreadyCancelled(err error) bool {
	var e interface{ AlreadyCancelled() bool }
	return errors.As(err, &e) && e.AlreadyCancelled()
}
