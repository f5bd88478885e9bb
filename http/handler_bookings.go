package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"

	"qrmang/entity"
	"qrmang/qr"
)

type postBookingRequest struct {
	BookingReference string            `json:"booking_reference"`
	EventID          string            `json:"event_id"`
	Attendees        []entity.Attendee `json:"attendees"`
	TicketType       string            `json:"ticket_type"`
	Quantity         int               `json:"quantity"`
	Total            entity.Money      `json:"total"`
}

type postBookingResponse struct {
	BookingID        string `json:"booking_id"`
	BookingReference string `json:"booking_reference"`
}

type putPaymentStatusRequest struct {
	Status entity.PaymentStatus `json:"status"`
}

func newBookingReference() string {
	return "BR-" + strings.ToUpper(shortuuid.New()[:8])
}

func (s Server) PostBookings(c echo.Context) error {
	ctx := c.Request().Context()

	var request postBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.BookingReference == "" {
		request.BookingReference = newBookingReference()
	}
	if err := qr.ValidateReference(request.BookingReference); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if request.Quantity <= 0 {
		request.Quantity = len(request.Attendees)
	}

	if _, err := s.eventsRepo.Get(ctx, request.EventID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return fmt.Errorf("could not get event: %w", err)
	}

	booking := entity.Booking{
		BookingID:        uuid.NewString(),
		BookingReference: request.BookingReference,
		EventID:          request.EventID,
		PaymentStatus:    entity.PaymentStatusPending,
		Attendees:        request.Attendees,
		TicketType:       request.TicketType,
		Quantity:         request.Quantity,
		TotalAmount:      request.Total.Amount,
		TotalCurrency:    request.Total.Currency,
	}

	if err := s.bookingsRepo.Store(ctx, booking); err != nil {
		return fmt.Errorf("could not store booking: %w", err)
	}

	// the reference may already exist
	stored, err := s.bookingsRepo.GetByReference(ctx, booking.BookingReference)
	if err != nil {
		return fmt.Errorf("could not get booking: %w", err)
	}

	return c.JSON(http.StatusCreated, postBookingResponse{
		BookingID:        stored.BookingID,
		BookingReference: stored.BookingReference,
	})
}

func (s Server) PutPaymentStatus(c echo.Context) error {
	var request putPaymentStatusRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if !request.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown payment status %q", request.Status))
	}

	booking, err := s.bookingsRepo.UpdatePaymentStatus(c.Request().Context(), c.Param("reference"), request.Status)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	case errors.Is(err, entity.ErrInvalidPaymentChange):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return fmt.Errorf("could not update payment status: %w", err)
	}

	return c.JSON(http.StatusOK, booking)
}

func (s Server) GetTicketQR(c echo.Context) error {
	booking, err := s.bookingsRepo.GetByReference(c.Request().Context(), c.Param("reference"))
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	}
	if err != nil {
		return fmt.Errorf("could not get booking: %w", err)
	}

	if booking.PaymentStatus != entity.PaymentStatusCompleted {
		return echo.NewHTTPError(http.StatusConflict, "payment not completed")
	}

	content, err := s.codec.EncodeForDisplay(booking.BookingReference)
	if err != nil {
		return fmt.Errorf("could not encode ticket: %w", err)
	}

	png, err := s.renderer.PNG(content)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}
