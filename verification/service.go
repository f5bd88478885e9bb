package verification

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"qrmang/entity"
	"qrmang/metrics"
)

type BookingsRepository interface {
	GetBookingAndEventAndTicket(ctx context.Context, bookingReference string) (entity.BookingDetails, error)
}

type TicketsRepository interface {
	// MarkVerifiedIfUnset sets verified_at and moves the ticket to done only if it was not
	// verified yet. It reports whether this call performed the transition.
	MarkVerifiedIfUnset(ctx context.Context, bookingID string, verifiedAt time.Time) (bool, error)
	GetByBookingID(ctx context.Context, bookingID string) (entity.Ticket, error)
}

// Service is the only path that moves a ticket from active to done.
type Service struct {
	bookings BookingsRepository
	tickets  TicketsRepository
	location *time.Location
	now      func() time.Time
}

func NewService(bookings BookingsRepository, tickets TicketsRepository, location *time.Location) Service {
	if bookings == nil {
		panic("missing bookings repository")
	}
	if tickets == nil {
		panic("missing tickets repository")
	}
	if location == nil {
		location = time.UTC
	}

	return Service{
		bookings: bookings,
		tickets:  tickets,
		location: location,
		now:      time.Now,
	}
}

// WithClock returns a copy of the service reading the current time from now.
func (s Service) WithClock(now func() time.Time) Service {
	s.now = now
	return s
}

// Verify checks the booking behind reference and marks its ticket as used.
// Scanning an already used ticket on the right day succeeds again with AlreadyVerified set.
func (s Service) Verify(ctx context.Context, bookingReference string) entity.VerificationResult {
	ctx, span := otel.Tracer("").Start(ctx, "verification.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("booking_reference", bookingReference))

	result := s.verify(ctx, bookingReference)

	span.SetAttributes(attribute.String("verification_status", string(result.Status)))
	metrics.Verifications.WithLabelValues(string(result.Status)).Inc()

	return result
}

func (s Service) verify(ctx context.Context, bookingReference string) entity.VerificationResult {
	logger := log.FromContext(ctx).WithField("booking_reference", bookingReference)

	details, err := s.bookings.GetBookingAndEventAndTicket(ctx, bookingReference)
	if errors.Is(err, entity.ErrNotFound) {
		logger.Info("Booking not found")
		return entity.NewVerificationFailure(entity.VerificationNotFound)
	}
	if err != nil {
		logger.WithError(err).Error("Could not load booking")
		return entity.NewVerificationFailure(entity.VerificationError)
	}

	booking := details.Booking
	logger = logger.WithField("booking_id", booking.BookingID)

	if booking.PaymentStatus != entity.PaymentStatusCompleted {
		logger.WithField("payment_status", booking.PaymentStatus).Info("Payment not completed")
		return entity.NewVerificationFailure(entity.VerificationPaymentIncomplete)
	}

	now := s.now()
	if !details.Event.IsOn(now, details.Event.Location(s.location)) {
		logger.WithFields(logrus.Fields{
			"event_start": details.Event.EventStart,
			"now":         now,
		}).Info("Scanned outside of the event day")
		return entity.NewVerificationFailure(entity.VerificationWrongDay)
	}

	if details.Ticket == nil {
		logger.Info("Ticket not issued yet")
		return entity.NewVerificationFailure(entity.VerificationNotIssued)
	}
	if details.Ticket.Status == entity.TicketStatusCancelled {
		return entity.NewVerificationFailure(entity.VerificationCancelled)
	}

	won := false
	if !details.Ticket.IsVerified() {
		won, err = s.tickets.MarkVerifiedIfUnset(ctx, booking.BookingID, now.UTC().Truncate(time.Microsecond))
		if err != nil {
			logger.WithError(err).Error("Could not mark ticket as verified")
			return entity.NewVerificationFailure(entity.VerificationError)
		}
	}

	ticket, err := s.tickets.GetByBookingID(ctx, booking.BookingID)
	if err != nil {
		logger.WithError(err).Error("Could not reload ticket")
		return entity.NewVerificationFailure(entity.VerificationError)
	}

	if !ticket.IsVerified() {
		// lost the update to a concurrent cancellation
		if ticket.Status == entity.TicketStatusCancelled {
			return entity.NewVerificationFailure(entity.VerificationCancelled)
		}
		logger.WithField("ticket_status", ticket.Status).Error("Ticket still unverified after update")
		return entity.NewVerificationFailure(entity.VerificationError)
	}

	logger.WithFields(logrus.Fields{
		"ticket_id":        ticket.TicketID,
		"already_verified": !won,
	}).Info("Ticket verified")

	return entity.NewVerificationSuccess(entity.VerificationDetail{
		BookingReference: booking.BookingReference,
		EventTitle:       details.Event.Title,
		Venue:            details.Event.Venue,
		EventStart:       details.Event.EventStart,
		Attendees:        booking.Attendees,
		TicketType:       booking.TicketType,
		Quantity:         booking.Quantity,
		Total:            booking.Total(),
		TicketID:         ticket.TicketID,
		TicketStatus:     ticket.Status,
		VerifiedAt:       *ticket.VerifiedAt,
		AlreadyVerified:  !won,
	})
}
