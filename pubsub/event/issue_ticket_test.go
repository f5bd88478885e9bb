package event_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/db/memory"
	"qrmang/entity"
	"qrmang/gateway"
	"qrmang/pubsub/bus"
	"qrmang/pubsub/event"
	"qrmang/qr"
)

type recordingPublisher struct {
	lock     sync.Mutex
	messages map[string][]*message.Message
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.messages == nil {
		p.messages = make(map[string][]*message.Message)
	}
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestIssueTicketHandler(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	booking := entity.Booking{
		BookingID:        "booking-1",
		BookingReference: "BR-AB12CD34",
		EventID:          "event-1",
		PaymentStatus:    entity.PaymentStatusCompleted,
		Attendees:        entity.Attendees{{Name: "Ada <Lovelace>"}},
		TicketType:       "VIP",
		Quantity:         1,
		TotalAmount:      "99.00",
		TotalCurrency:    "EUR",
	}
	require.NoError(t, store.Seed(
		entity.Event{EventID: "event-1", Title: "Jazz Night", Venue: "Blue Hall", EventStart: time.Now()},
		booking,
		nil,
	))

	publisher := &recordingPublisher{}
	eventBus, err := bus.NewEventBus(publisher)
	require.NoError(t, err)

	files := &gateway.FilesMock{}
	codec := qr.NewCodec("test-secret-key-32bytes-long!!")

	handler := event.NewHandler(eventBus, store, store, files, codec, qr.NewRenderer(128)).IssueTicketHandler()

	paymentCompleted := &entity.BookingPaymentCompleted_v1{
		Header:           entity.NewEventHeader(),
		BookingID:        booking.BookingID,
		BookingReference: booking.BookingReference,
		EventID:          booking.EventID,
	}

	// redelivery issues the same ticket
	for i := 0; i < 2; i++ {
		require.NoError(t, handler.Handle(ctx, paymentCompleted))
	}

	ticket, err := store.GetByBookingID(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusActive, ticket.Status)

	require.Equal(t, []string{ticket.TicketID + "-ticket.html"}, files.FileIDs())
	document, err := files.DownloadFile(ctx, ticket.TicketID+"-ticket.html")
	require.NoError(t, err)
	assert.Contains(t, document, "Jazz Night")
	assert.Contains(t, document, "BR-AB12CD34")
	assert.Contains(t, document, `src="data:image/png;base64,`)
	assert.Contains(t, document, "Ada &lt;Lovelace&gt;")
	assert.False(t, strings.Contains(document, "ZgotmplZ"), "data uri must not be sanitized away")

	issued := publisher.messages["events"]
	require.Len(t, issued, 2)
	assert.Contains(t, string(issued[0].Payload), ticket.TicketID)
}

func TestIssueTicketHandler_unknownBooking(t *testing.T) {
	eventBus, err := bus.NewEventBus(&recordingPublisher{})
	require.NoError(t, err)

	store := memory.NewStore()
	handler := event.NewHandler(eventBus, store, store, &gateway.FilesMock{}, qr.NewCodec("secret"), qr.NewRenderer(0)).IssueTicketHandler()

	err = handler.Handle(context.Background(), &entity.BookingPaymentCompleted_v1{
		Header:           entity.NewEventHeader(),
		BookingReference: "BR-MISSING",
	})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
