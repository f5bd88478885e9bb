package entity

import "time"

type VerificationStatus string

const (
	VerificationSuccess           VerificationStatus = "success"
	VerificationNotFound          VerificationStatus = "not_found"
	VerificationPaymentIncomplete VerificationStatus = "payment_incomplete"
	VerificationWrongDay          VerificationStatus = "wrong_day"
	VerificationNotIssued         VerificationStatus = "not_issued"
	VerificationCancelled         VerificationStatus = "cancelled"
	VerificationError             VerificationStatus = "error"
)

var verificationMessages = map[VerificationStatus]string{
	VerificationSuccess:           "Ticket verified",
	VerificationNotFound:          "Booking not found",
	VerificationPaymentIncomplete: "Payment not completed",
	VerificationWrongDay:          "Not the event day",
	VerificationNotIssued:         "Ticket not issued yet",
	VerificationCancelled:         "Ticket cancelled",
	VerificationError:             "Verification failed, please retry",
}

// VerificationResult is what a door scan resolves to. It is a value, never an error:
// business rejections and I/O failures are both expressed through Status.
type VerificationResult struct {
	Status  VerificationStatus  `json:"status"`
	Message string              `json:"message"`
	Detail  *VerificationDetail `json:"detail,omitempty"`
}

func (r VerificationResult) OK() bool {
	return r.Status == VerificationSuccess
}

// VerificationDetail carries enough to render a confirmation card without another lookup.
type VerificationDetail struct {
	BookingReference string       `json:"booking_reference"`
	EventTitle       string       `json:"event_title"`
	Venue            string       `json:"venue"`
	EventStart       time.Time    `json:"event_start"`
	Attendees        []Attendee   `json:"attendees"`
	TicketType       string       `json:"ticket_type"`
	Quantity         int          `json:"quantity"`
	Total            Money        `json:"total"`
	TicketID         string       `json:"ticket_id"`
	TicketStatus     TicketStatus `json:"ticket_status"`
	VerifiedAt       time.Time    `json:"verified_at"`
	AlreadyVerified  bool         `json:"already_verified"`
}

func NewVerificationFailure(status VerificationStatus) VerificationResult {
	return VerificationResult{
		Status:  status,
		Message: verificationMessages[status],
	}
}

func NewVerificationSuccess(detail VerificationDetail) VerificationResult {
	msg := verificationMessages[VerificationSuccess]
	if detail.AlreadyVerified {
		msg = "Ticket already verified"
	}

	return VerificationResult{
		Status:  VerificationSuccess,
		Message: msg,
		Detail:  &detail,
	}
}
