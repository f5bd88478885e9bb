package event

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/sirupsen/logrus"

	"qrmang/entity"
	"qrmang/metrics"
)

var ticketTemplate = template.Must(template.New("ticket").Parse(`<html>
	<head>
		<title>Ticket {{.Booking.BookingReference}}</title>
	</head>
	<body>
		<h1>{{.Event.Title}}</h1>
		<p>{{.Event.Venue}}, {{.Event.EventStart.Format "2006-01-02 15:04 MST"}}</p>
		<p>Booking {{.Booking.BookingReference}}: {{.Booking.Quantity}} x {{.Booking.TicketType}}, {{.Booking.TotalAmount}} {{.Booking.TotalCurrency}}</p>
		<ul>
		{{- range .Booking.Attendees}}
			<li>{{.Name}}</li>
		{{- end}}
		</ul>
		<img alt="Ticket {{.TicketID}}" src="{{.QRCode}}"/>
	</body>
</html>
`))

type ticketDocument struct {
	entity.BookingDetails
	TicketID string
	QRCode   template.URL
}

// IssueTicketHandler creates the ticket of a paid booking and uploads the document with its QR code.
func (h Handler) IssueTicketHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"IssueTicketHandler",
		func(ctx context.Context, event *entity.BookingPaymentCompleted_v1) error {
			logger := log.FromContext(ctx).WithFields(logrus.Fields{
				"booking_id":        event.BookingID,
				"booking_reference": event.BookingReference,
			})
			logger.Info("Issuing ticket")

			details, err := h.bookingsRepo.GetBookingAndEventAndTicket(ctx, event.BookingReference)
			if err != nil {
				return fmt.Errorf("could not get booking %s: %w", event.BookingReference, err)
			}

			ticket, err := h.ticketsRepo.Issue(ctx, entity.Ticket{
				BookingID: details.Booking.BookingID,
				EventID:   details.Booking.EventID,
			})
			if err != nil {
				return fmt.Errorf("could not issue ticket: %w", err)
			}

			content, err := h.codec.EncodeForDisplay(details.Booking.BookingReference)
			if err != nil {
				return fmt.Errorf("could not encode ticket payload: %w", err)
			}

			qrCode, err := h.renderer.DataURI(content)
			if err != nil {
				return err
			}

			var document bytes.Buffer
			err = ticketTemplate.Execute(&document, ticketDocument{
				BookingDetails: details,
				TicketID:       ticket.TicketID,
				QRCode:         template.URL(qrCode),
			})
			if err != nil {
				return fmt.Errorf("could not render ticket document: %w", err)
			}

			fileID := fmt.Sprintf("%s-ticket.html", ticket.TicketID)
			if err := h.filesService.UploadFile(ctx, fileID, document.String()); err != nil {
				return fmt.Errorf("could not upload ticket document: %w", err)
			}
			metrics.TicketsIssued.Inc()

			return h.eventBus.Publish(ctx, entity.TicketIssued_v1{
				Header:           entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
				TicketID:         ticket.TicketID,
				BookingID:        ticket.BookingID,
				BookingReference: details.Booking.BookingReference,
				FileName:         fileID,
			})
		},
	)
}
