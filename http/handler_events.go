package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"qrmang/entity"
)

type postEventRequest struct {
	EventID       string    `json:"event_id"`
	Title         string    `json:"title"`
	Venue         string    `json:"venue"`
	EventStart    time.Time `json:"event_start"`
	VenueTimezone string    `json:"venue_timezone"`
}

type postEventResponse struct {
	EventID string `json:"event_id"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Title == "" || request.EventStart.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "title and event_start are required")
	}
	if request.VenueTimezone != "" {
		if _, err := time.LoadLocation(request.VenueTimezone); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown venue_timezone %q", request.VenueTimezone))
		}
	}
	if request.EventID == "" {
		request.EventID = uuid.NewString()
	}

	err := s.eventsRepo.Store(c.Request().Context(), entity.Event{
		EventID:       request.EventID,
		Title:         request.Title,
		Venue:         request.Venue,
		EventStart:    request.EventStart.UTC(),
		VenueTimezone: request.VenueTimezone,
	})
	if err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}

	return c.JSON(http.StatusCreated, postEventResponse{EventID: request.EventID})
}
