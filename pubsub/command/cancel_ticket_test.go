package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/db/memory"
	"qrmang/entity"
	"qrmang/pubsub/command"
)

func TestCancelTicketHandler(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Seed(
		entity.Event{EventID: "event-1"},
		entity.Booking{BookingID: "booking-1", BookingReference: "BR-1", EventID: "event-1", PaymentStatus: entity.PaymentStatusCompleted},
		&entity.Ticket{BookingID: "booking-1", EventID: "event-1"},
	))

	handler := command.NewHandler(store, store).CancelTicketHandler()

	cancel := &entity.CancelTicket{Header: entity.NewEventHeader(), BookingReference: "BR-1"}
	require.NoError(t, handler.Handle(ctx, cancel))
	require.NoError(t, handler.Handle(ctx, cancel))

	ticket, err := store.GetByBookingID(ctx, "booking-1")
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, ticket.Status)

	var cancelledEvents int
	for _, published := range store.Published() {
		if _, ok := published.(entity.TicketCancelled_v1); ok {
			cancelledEvents++
		}
	}
	assert.Equal(t, 1, cancelledEvents)

	assert.NoError(t, handler.Handle(ctx, &entity.CancelTicket{Header: entity.NewEventHeader(), BookingReference: "BR-MISSING"}))
}
