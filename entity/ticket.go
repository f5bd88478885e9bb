package entity

import "time"

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusDone      TicketStatus = "done"
	TicketStatusCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	TicketID   string       `json:"ticket_id" db:"ticket_id"`
	BookingID  string       `json:"booking_id" db:"booking_id"`
	EventID    string       `json:"event_id" db:"event_id"`
	Status     TicketStatus `json:"status" db:"status"`
	VerifiedAt *time.Time   `json:"verified_at" db:"verified_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

func (t Ticket) IsVerified() bool {
	return t.VerifiedAt != nil
}
