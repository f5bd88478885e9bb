package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

type Booking struct {
	BookingID        string        `json:"booking_id" db:"booking_id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	EventID          string        `json:"event_id" db:"event_id"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	Attendees        Attendees     `json:"attendees" db:"attendees"`
	TicketType       string        `json:"ticket_type" db:"ticket_type"`
	Quantity         int           `json:"quantity" db:"quantity"`
	TotalAmount      string        `json:"total_amount" db:"total_amount"`
	TotalCurrency    string        `json:"total_currency" db:"total_currency"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

func (b Booking) Total() Money {
	return Money{Amount: b.TotalAmount, Currency: b.TotalCurrency}
}

type Attendee struct {
	Name             string `json:"name"`
	Age              int    `json:"age"`
	IDDocumentNumber string `json:"id_document_number"`
	Gender           string `json:"gender"`
}

// Attendees keeps the booking order and is stored as a JSONB column.
type Attendees []Attendee

func (a Attendees) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attendees) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Attendees{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attendees column type %T", src)
	}

	return json.Unmarshal(data, a)
}

// BookingDetails is the joined read the verification gate works on.
// Ticket is nil until the ticket has been issued for a completed booking.
type BookingDetails struct {
	Booking Booking
	Event   Event
	Ticket  *Ticket
}
