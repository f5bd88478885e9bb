package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"qrmang/entity"
	"qrmang/scanner"
)

type postScanRequest struct {
	Code string `json:"code"`
}

func verificationHTTPStatus(status entity.VerificationStatus) int {
	switch status {
	case entity.VerificationSuccess:
		return http.StatusOK
	case entity.VerificationNotFound:
		return http.StatusNotFound
	case entity.VerificationPaymentIncomplete,
		entity.VerificationWrongDay,
		entity.VerificationNotIssued,
		entity.VerificationCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s Server) PostVerify(c echo.Context) error {
	result := s.verifier.Verify(c.Request().Context(), c.Param("reference"))

	return c.JSON(verificationHTTPStatus(result.Status), result)
}

// PostScan runs the whole decode pipeline for a raw code read by a thin client.
func (s Server) PostScan(c echo.Context) error {
	var request postScanRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	outcome := s.pipeline.Process(c.Request().Context(), request.Code)

	return c.JSON(scanHTTPStatus(outcome), outcome)
}

func scanHTTPStatus(outcome scanner.Outcome) int {
	if outcome.Result != nil {
		return verificationHTTPStatus(outcome.Result.Status)
	}
	return http.StatusUnprocessableEntity
}

func (s Server) PutCancelTicket(c echo.Context) error {
	reference := c.Param("reference")

	err := s.commandBus.Send(c.Request().Context(), entity.CancelTicket{
		Header:           entity.NewEventHeaderWithIdempotencyKey("cancel-" + reference),
		BookingReference: reference,
	})
	if err != nil {
		return fmt.Errorf("could not send cancel ticket command: %w", err)
	}

	return c.NoContent(http.StatusAccepted)
}
