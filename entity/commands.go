package entity

type CancelTicket struct {
	Header           EventHeader `json:"header"`
	BookingReference string      `json:"booking_reference"`
}

func (c CancelTicket) IdempotencyKey() string {
	return c.Header.IdempotencyKey
}
