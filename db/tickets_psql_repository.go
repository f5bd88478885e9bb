package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"qrmang/entity"
)

type TicketsPostgresRepository struct {
	db *sqlx.DB
}

func NewTicketsPostgresRepository(db *sqlx.DB) TicketsPostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return TicketsPostgresRepository{db: db}
}

// Issue creates the ticket for a booking. A booking has at most one ticket,
// issuing again returns the existing one.
func (r TicketsPostgresRepository) Issue(ctx context.Context, ticket entity.Ticket) (entity.Ticket, error) {
	if ticket.TicketID == "" {
		ticket.TicketID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = entity.TicketStatusActive
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tickets (ticket_id, booking_id, event_id, status, created_at)
		VALUES (:ticket_id, :booking_id, :event_id, :status, :created_at)
		ON CONFLICT (booking_id) DO NOTHING -- ignore if already issued
	`, ticket)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not issue ticket for booking %s: %w", ticket.BookingID, err)
	}

	return r.GetByBookingID(ctx, ticket.BookingID)
}

func (r TicketsPostgresRepository) GetByBookingID(ctx context.Context, bookingID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, booking_id, event_id, status, verified_at, created_at
		FROM tickets
		WHERE booking_id = $1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket for booking %s: %w", bookingID, err)
	}

	ticket.CreatedAt = ticket.CreatedAt.UTC()
	if ticket.VerifiedAt != nil {
		verifiedAt := ticket.VerifiedAt.UTC()
		ticket.VerifiedAt = &verifiedAt
	}

	return ticket, nil
}

// MarkVerifiedIfUnset is a compare-and-set on verified_at. Concurrent callers
// block on the row lock and re-check the condition, so exactly one of them updates
// the row and publishes TicketVerified_v1.
func (r TicketsPostgresRepository) MarkVerifiedIfUnset(ctx context.Context, bookingID string, verifiedAt time.Time) (bool, error) {
	updated := false

	err := UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var ticket struct {
			TicketID string `db:"ticket_id"`
			EventID  string `db:"event_id"`
		}

		err := tx.GetContext(ctx, &ticket, `
			UPDATE tickets
			SET verified_at = $1, status = $2
			WHERE booking_id = $3 AND verified_at IS NULL AND status = $4
			RETURNING ticket_id, event_id
		`, verifiedAt, entity.TicketStatusDone, bookingID, entity.TicketStatusActive)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not mark ticket as verified: %w", err)
		}
		updated = true

		return publishInTx(ctx, tx, entity.TicketVerified_v1{
			Header:     entity.NewEventHeaderWithIdempotencyKey("ticket-verified-" + ticket.TicketID),
			TicketID:   ticket.TicketID,
			BookingID:  bookingID,
			EventID:    ticket.EventID,
			VerifiedAt: verifiedAt,
		})
	})
	if err != nil {
		return false, err
	}

	return updated, nil
}

// Cancel moves an active, unused ticket to cancelled. It reports false when the
// ticket was already used or cancelled.
func (r TicketsPostgresRepository) Cancel(ctx context.Context, bookingID string) (bool, error) {
	cancelled := false

	err := UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var ticketID string
		err := tx.GetContext(ctx, &ticketID, `
			UPDATE tickets
			SET status = $1
			WHERE booking_id = $2 AND verified_at IS NULL AND status = $3
			RETURNING ticket_id
		`, entity.TicketStatusCancelled, bookingID, entity.TicketStatusActive)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tickets WHERE booking_id = $1)`, bookingID); err != nil {
				return fmt.Errorf("could not check ticket: %w", err)
			}
			if !exists {
				return entity.ErrNotFound
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not cancel ticket: %w", err)
		}
		cancelled = true

		return publishInTx(ctx, tx, entity.TicketCancelled_v1{
			Header:    entity.NewEventHeaderWithIdempotencyKey("ticket-cancelled-" + ticketID),
			TicketID:  ticketID,
			BookingID: bookingID,
		})
	})
	if err != nil {
		return false, err
	}

	return cancelled, nil
}
