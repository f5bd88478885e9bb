// Package memory keeps events, bookings and tickets in process memory.
// It mirrors the Postgres repositories, including the conditional verification update,
// and is used by tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"qrmang/entity"
)

type Store struct {
	lock sync.Mutex

	events   map[string]entity.Event
	bookings map[string]entity.Booking // by reference
	tickets  map[string]entity.Ticket  // by booking id

	published           []any
	verificationUpdates int
}

func NewStore() *Store {
	return &Store{
		events:   make(map[string]entity.Event),
		bookings: make(map[string]entity.Booking),
		tickets:  make(map[string]entity.Ticket),
	}
}

// Events returns a view of the store shaped like the Postgres events repository.
func (s *Store) Events() Events {
	return Events{store: s}
}

type Events struct {
	store *Store
}

func (e Events) Store(ctx context.Context, event entity.Event) error {
	return e.store.storeEvent(event)
}

func (e Events) Get(ctx context.Context, eventID string) (entity.Event, error) {
	return e.store.getEvent(eventID)
}

func (s *Store) storeEvent(event entity.Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.events[event.EventID]; !ok {
		s.events[event.EventID] = event
	}
	return nil
}

func (s *Store) getEvent(eventID string) (entity.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return entity.Event{}, entity.ErrNotFound
	}
	return event, nil
}

func (s *Store) Store(ctx context.Context, booking entity.Booking) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.bookings[booking.BookingReference]; ok {
		return nil
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	s.bookings[booking.BookingReference] = copyBooking(booking)
	return nil
}

func (s *Store) GetByReference(ctx context.Context, bookingReference string) (entity.Booking, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	booking, ok := s.bookings[bookingReference]
	if !ok {
		return entity.Booking{}, entity.ErrNotFound
	}
	return copyBooking(booking), nil
}

func (s *Store) GetBookingAndEventAndTicket(ctx context.Context, bookingReference string) (entity.BookingDetails, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	booking, ok := s.bookings[bookingReference]
	if !ok {
		return entity.BookingDetails{}, entity.ErrNotFound
	}
	event, ok := s.events[booking.EventID]
	if !ok {
		return entity.BookingDetails{}, entity.ErrNotFound
	}

	details := entity.BookingDetails{Booking: copyBooking(booking), Event: event}
	if ticket, ok := s.tickets[booking.BookingID]; ok {
		ticket = copyTicket(ticket)
		details.Ticket = &ticket
	}
	return details, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, bookingReference string, status entity.PaymentStatus) (entity.Booking, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	booking, ok := s.bookings[bookingReference]
	if !ok {
		return entity.Booking{}, entity.ErrNotFound
	}
	if booking.PaymentStatus == status {
		return copyBooking(booking), nil
	}
	if booking.PaymentStatus != entity.PaymentStatusPending {
		return entity.Booking{}, entity.ErrInvalidPaymentChange
	}

	booking.PaymentStatus = status
	s.bookings[bookingReference] = booking

	if status == entity.PaymentStatusCompleted {
		s.published = append(s.published, entity.BookingPaymentCompleted_v1{
			Header:           entity.NewEventHeader(),
			BookingID:        booking.BookingID,
			BookingReference: booking.BookingReference,
			EventID:          booking.EventID,
		})
	}

	return copyBooking(booking), nil
}

func (s *Store) Issue(ctx context.Context, ticket entity.Ticket) (entity.Ticket, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if existing, ok := s.tickets[ticket.BookingID]; ok {
		return copyTicket(existing), nil
	}
	if ticket.TicketID == "" {
		ticket.TicketID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = entity.TicketStatusActive
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	s.tickets[ticket.BookingID] = copyTicket(ticket)
	return ticket, nil
}

func (s *Store) GetByBookingID(ctx context.Context, bookingID string) (entity.Ticket, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ticket, ok := s.tickets[bookingID]
	if !ok {
		return entity.Ticket{}, entity.ErrNotFound
	}
	return copyTicket(ticket), nil
}

func (s *Store) MarkVerifiedIfUnset(ctx context.Context, bookingID string, verifiedAt time.Time) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ticket, ok := s.tickets[bookingID]
	if !ok || ticket.VerifiedAt != nil || ticket.Status != entity.TicketStatusActive {
		return false, nil
	}

	ticket.VerifiedAt = &verifiedAt
	ticket.Status = entity.TicketStatusDone
	s.tickets[bookingID] = ticket
	s.verificationUpdates++

	s.published = append(s.published, entity.TicketVerified_v1{
		Header:     entity.NewEventHeader(),
		TicketID:   ticket.TicketID,
		BookingID:  ticket.BookingID,
		EventID:    ticket.EventID,
		VerifiedAt: verifiedAt,
	})

	return true, nil
}

func (s *Store) Cancel(ctx context.Context, bookingID string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ticket, ok := s.tickets[bookingID]
	if !ok {
		return false, entity.ErrNotFound
	}
	if ticket.Status != entity.TicketStatusActive || ticket.VerifiedAt != nil {
		return false, nil
	}

	ticket.Status = entity.TicketStatusCancelled
	s.tickets[bookingID] = ticket

	s.published = append(s.published, entity.TicketCancelled_v1{
		Header:    entity.NewEventHeader(),
		TicketID:  ticket.TicketID,
		BookingID: ticket.BookingID,
	})

	return true, nil
}

// VerificationUpdates returns how many MarkVerifiedIfUnset calls changed a row.
func (s *Store) VerificationUpdates() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.verificationUpdates
}

// Published returns the events the store would have written to the outbox.
func (s *Store) Published() []any {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]any(nil), s.published...)
}

// Seed stores an event, a booking and optionally its ticket in one go.
func (s *Store) Seed(event entity.Event, booking entity.Booking, ticket *entity.Ticket) error {
	ctx := context.Background()

	if err := s.storeEvent(event); err != nil {
		return fmt.Errorf("could not seed event: %w", err)
	}
	if err := s.Store(ctx, booking); err != nil {
		return fmt.Errorf("could not seed booking: %w", err)
	}
	if ticket != nil {
		if _, err := s.Issue(ctx, *ticket); err != nil {
			return fmt.Errorf("could not seed ticket: %w", err)
		}
	}
	return nil
}

// copies keep callers from mutating stored rows through shared slices or pointers

func copyBooking(booking entity.Booking) entity.Booking {
	booking.Attendees = append(entity.Attendees{}, booking.Attendees...)
	return booking
}

func copyTicket(ticket entity.Ticket) entity.Ticket {
	if ticket.VerifiedAt != nil {
		verifiedAt := *ticket.VerifiedAt
		ticket.VerifiedAt = &verifiedAt
	}
	return ticket
}
