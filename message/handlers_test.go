package message

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ticketbooking/entity"
	"ticketbooking/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockHistoryRecorder struct {
	lock    sync.Mutex
	Entries []entity.HistoryEntry
	Err     error
}

func (m *MockHistoryRecorder) Add(_ context.Context, entry entity.HistoryEntry) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func TestHandleRecordTicketBooked(t *testing.T) {
	recorder := &MockHistoryRecorder{}
	ticket := entity.Ticket{
		BookingReference: "ref-1",
		PassengerName:    "John Doe",
		SeatNumber:       "A1",
		Amount:           100,
		Status:           entity.StatusBooked,
	}
	e := event.NewTicketBooked("req-1", ticket)

	err := handleRecordTicketBooked(recorder)(context.Background(), &e)
	require.NoError(t, err)

	require.Len(t, recorder.Entries, 1)
	entry := recorder.Entries[0]
	assert.Equal(t, e.Header.ID, entry.EventID)
	assert.Equal(t, "ref-1", entry.BookingReference)
	assert.Equal(t, "TicketBooked", entry.EventType)
	assert.Equal(t, "A1", entry.SeatNumber)
	assert.Equal(t, entity.StatusBooked, entry.Status)
	assert.Equal(t, e.Header.PublishedAt, entry.OccurredAt)
	assert.Equal(t, "req-1", e.Header.IdempotencyKey)
}

func TestHandleRecordTicketCancelled(t *testing.T) {
	recorder := &MockHistoryRecorder{}
	e := event.NewTicketCancelled(entity.Ticket{
		BookingReference: "ref-2",
		SeatNumber:       "B7",
		Status:           entity.StatusCancelled,
	})

	err := handleRecordTicketCancelled(recorder)(context.Background(), &e)
	require.NoError(t, err)

	require.Len(t, recorder.Entries, 1)
	assert.Equal(t, "TicketCancelled", recorder.Entries[0].EventType)
	assert.Equal(t, entity.StatusCancelled, recorder.Entries[0].Status)
	assert.Equal(t, "cancel-ref-2", e.Header.IdempotencyKey)
}

func TestHandleRecordTicketBooked_RecorderFailure(t *testing.T) {
	recorder := &MockHistoryRecorder{Err: errors.New("connection refused")}
	e := event.NewTicketBooked("req-1", entity.Ticket{BookingReference: "ref-1"})

	err := handleRecordTicketBooked(recorder)(context.Background(), &e)
	assert.ErrorContains(t, err, "connection refused")
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var got string
	handler := correlationIDMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		got = log.CorrelationIDFromContext(msg.Context())
		return nil, nil
	})

	t.Run("from metadata", func(t *testing.T) {
		msg := message.NewMessage(watermill.NewUUID(), nil)
		middleware.SetCorrelationID("correlation-1", msg)

		_, err := handler(msg)
		require.NoError(t, err)
		assert.Equal(t, "correlation-1", got)
	})

	t.Run("generated", func(t *testing.T) {
		msg := message.NewMessage(watermill.NewUUID(), nil)

		_, err := handler(msg)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "gen_"), got)
	})
}

func TestEventBus_PublishesByStructName(t *testing.T) {
	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), "TicketBooked")
	require.NoError(t, err)

	bus, err := NewEventBus(pubSub, logger)
	require.NoError(t, err)

	e := event.NewTicketBooked("req-1", entity.Ticket{
		BookingReference: "ref-1",
		PassengerName:    "John Doe",
		SeatNumber:       "A1",
		Amount:           100,
	})
	require.NoError(t, bus.Publish(context.Background(), e))

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, "TicketBooked", msg.Metadata.Get("name"))

		var received event.TicketBooked
		require.NoError(t, json.Unmarshal(msg.Payload, &received))
		assert.Equal(t, e.Header.ID, received.Header.ID)
		assert.Equal(t, "ref-1", received.BookingReference)
		assert.Equal(t, 100.0, received.Amount)
	case <-time.After(5 * time.Second):
		t.Fatal("event not published")
	}
}

func TestTicketLoggerMiddleware(t *testing.T) {
	var fields map[string]any
	handler := correlationIDMiddleware(ticketLoggerMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		fields = log.FromContext(msg.Context()).Data
		return nil, nil
	}))

	e := event.NewTicketBooked("req-1", entity.Ticket{BookingReference: "ref-1", SeatNumber: "A1"})
	payload, err := json.Marshal(e)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("name", "TicketBooked")
	middleware.SetCorrelationID("correlation-1", msg)

	_, err = handler(msg)
	require.NoError(t, err)

	assert.Equal(t, msg.UUID, fields["message_uuid"])
	assert.Equal(t, "TicketBooked", fields["event_name"])
	assert.Equal(t, "correlation-1", fields["correlation_id"])
	assert.Equal(t, "ref-1", fields["booking_reference"])
	assert.Equal(t, "req-1", fields["idempotency_key"])
}

func TestTicketLoggerMiddleware_UndecodablePayload(t *testing.T) {
	var fields map[string]any
	handler := ticketLoggerMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		fields = log.FromContext(msg.Context()).Data
		return nil, nil
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))

	_, err := handler(msg)
	require.NoError(t, err)

	assert.Equal(t, msg.UUID, fields["message_uuid"])
	assert.NotContains(t, fields, "booking_reference")
}
