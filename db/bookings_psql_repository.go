package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"qrmang/entity"
)

type BookingsPostgresRepository struct {
	db *sqlx.DB
}

func NewBookingsPostgresRepository(db *sqlx.DB) BookingsPostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return BookingsPostgresRepository{db: db}
}

const bookingColumns = `booking_id, booking_reference, event_id, payment_status, attendees,
	ticket_type, quantity, total_amount, total_currency, created_at`

// Store adds a booking. Storing the same reference twice is a no-op.
func (r BookingsPostgresRepository) Store(ctx context.Context, booking entity.Booking) error {
	if booking.Attendees == nil {
		booking.Attendees = entity.Attendees{}
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO 
		    bookings (`+bookingColumns+`) 
		VALUES 
		    (:booking_id, :booking_reference, :event_id, :payment_status, :attendees,
		     :ticket_type, :quantity, :total_amount, :total_currency, :created_at)
		ON CONFLICT (booking_reference) DO NOTHING
	`, booking)
	if err != nil {
		return fmt.Errorf("could not add booking: %w", err)
	}

	return nil
}

func (r BookingsPostgresRepository) GetByReference(ctx context.Context, bookingReference string) (entity.Booking, error) {
	return r.getByReference(ctx, r.db, bookingReference, false)
}

func (r BookingsPostgresRepository) getByReference(ctx context.Context, db Executor, bookingReference string, forUpdate bool) (entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var booking entity.Booking
	err := db.GetContext(ctx, &booking, query, bookingReference)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Booking{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not get booking %s: %w", bookingReference, err)
	}

	booking.CreatedAt = booking.CreatedAt.UTC()
	return booking, nil
}

type bookingDetailsRow struct {
	entity.Booking

	EventTitle    string    `db:"event_title"`
	EventVenue    string    `db:"event_venue"`
	EventStart    time.Time `db:"event_start"`
	VenueTimezone string    `db:"venue_timezone"`

	TicketID        sql.NullString `db:"ticket_id"`
	TicketStatus    sql.NullString `db:"ticket_status"`
	VerifiedAt      sql.NullTime   `db:"verified_at"`
	TicketCreatedAt sql.NullTime   `db:"ticket_created_at"`
}

func (row bookingDetailsRow) toEntity() entity.BookingDetails {
	details := entity.BookingDetails{
		Booking: row.Booking,
		Event: entity.Event{
			EventID:       row.Booking.EventID,
			Title:         row.EventTitle,
			Venue:         row.EventVenue,
			EventStart:    row.EventStart,
			VenueTimezone: row.VenueTimezone,
		},
	}

	if row.TicketID.Valid {
		ticket := entity.Ticket{
			TicketID:  row.TicketID.String,
			BookingID: row.Booking.BookingID,
			EventID:   row.Booking.EventID,
			Status:    entity.TicketStatus(row.TicketStatus.String),
			CreatedAt: row.TicketCreatedAt.Time.UTC(),
		}
		if row.VerifiedAt.Valid {
			verifiedAt := row.VerifiedAt.Time.UTC()
			ticket.VerifiedAt = &verifiedAt
		}
		details.Ticket = &ticket
	}

	return details
}

// GetBookingAndEventAndTicket reads a booking together with its event and, if already issued, its ticket.
func (r BookingsPostgresRepository) GetBookingAndEventAndTicket(ctx context.Context, bookingReference string) (entity.BookingDetails, error) {
	var row bookingDetailsRow
	err := r.db.GetContext(ctx, &row, `
		SELECT
			b.booking_id, b.booking_reference, b.event_id, b.payment_status, b.attendees,
			b.ticket_type, b.quantity, b.total_amount, b.total_currency, b.created_at,
			e.title AS event_title,
			e.venue AS event_venue,
			e.event_start,
			e.venue_timezone,
			t.ticket_id,
			t.status AS ticket_status,
			t.verified_at,
			t.created_at AS ticket_created_at
		FROM bookings b
		JOIN events e ON e.event_id = b.event_id
		LEFT JOIN tickets t ON t.booking_id = b.booking_id
		WHERE b.booking_reference = $1
	`, bookingReference)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.BookingDetails{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.BookingDetails{}, fmt.Errorf("could not get booking details %s: %w", bookingReference, err)
	}

	return row.toEntity(), nil
}

// UpdatePaymentStatus moves a pending booking to status. Completing the payment publishes
// BookingPaymentCompleted_v1 in the same transaction.
func (r BookingsPostgresRepository) UpdatePaymentStatus(
	ctx context.Context,
	bookingReference string,
	status entity.PaymentStatus,
) (entity.Booking, error) {
	var booking entity.Booking

	err := UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		booking, err = r.getByReference(ctx, tx, bookingReference, true)
		if err != nil {
			return err
		}

		if booking.PaymentStatus == status {
			return nil
		}
		if booking.PaymentStatus != entity.PaymentStatusPending {
			return entity.ErrInvalidPaymentChange
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET payment_status = $1 WHERE booking_id = $2
		`, status, booking.BookingID)
		if err != nil {
			return fmt.Errorf("could not update payment status: %w", err)
		}
		booking.PaymentStatus = status

		if status != entity.PaymentStatusCompleted {
			return nil
		}

		return publishInTx(ctx, tx, entity.BookingPaymentCompleted_v1{
			Header:           entity.NewEventHeaderWithIdempotencyKey("payment-completed-" + booking.BookingID),
			BookingID:        booking.BookingID,
			BookingReference: booking.BookingReference,
			EventID:          booking.EventID,
		})
	})
	if err != nil {
		return entity.Booking{}, err
	}

	return booking, nil
}
