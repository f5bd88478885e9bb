package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"qrmang/entity"
)

func (h Handler) CancelTicketHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"CancelTicketHandler",
		func(ctx context.Context, command *entity.CancelTicket) error {
			logger := log.FromContext(ctx).WithField("booking_reference", command.BookingReference)
			logger.Info("Cancelling ticket")

			booking, err := h.bookingsRepo.GetByReference(ctx, command.BookingReference)
			if errors.Is(err, entity.ErrNotFound) {
				logger.Warn("Booking not found, skipping cancellation")
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not get booking: %w", err)
			}

			cancelled, err := h.ticketsRepo.Cancel(ctx, booking.BookingID)
			if errors.Is(err, entity.ErrNotFound) {
				logger.Warn("Ticket not issued, skipping cancellation")
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not cancel ticket: %w", err)
			}

			if !cancelled {
				logger.Info("Ticket already used or cancelled")
			}

			return nil
		},
	)
}
