package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingPaymentCompleted_v1 struct {
	Header           EventHeader `json:"header"`
	BookingID        string      `json:"booking_id"`
	BookingReference string      `json:"booking_reference"`
	EventID          string      `json:"event_id"`
}

type TicketIssued_v1 struct {
	Header           EventHeader `json:"header"`
	TicketID         string      `json:"ticket_id"`
	BookingID        string      `json:"booking_id"`
	BookingReference string      `json:"booking_reference"`
	FileName         string      `json:"file_name"`
}

type TicketVerified_v1 struct {
	Header     EventHeader `json:"header"`
	TicketID   string      `json:"ticket_id"`
	BookingID  string      `json:"booking_id"`
	EventID    string      `json:"event_id"`
	VerifiedAt time.Time   `json:"verified_at"`
}

type TicketCancelled_v1 struct {
	Header    EventHeader `json:"header"`
	TicketID  string      `json:"ticket_id"`
	BookingID string      `json:"booking_id"`
}
