package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lulgamer69/event-ticket-system/internal/service"
)

// errorStatus maps service errors to HTTP status codes.  Unknown errors
// are 500 and their text is not returned to the client.
func errorStatus(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Error()
	case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrDuplicateRegistration),
		errors.Is(err, service.ErrTicketAlreadyUsed),
		errors.Is(err, service.ErrNothingToPay),
		errors.Is(err, service.ErrNotVerifiable),
		errors.Is(err, service.ErrMessageAlreadySent):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrRegistrationClosed):
		return http.StatusGone, err.Error()
	case errors.Is(err, service.ErrUploadInvalid):
		return http.StatusBadRequest, service.ErrUploadInvalid.Error()
	case errors.Is(err, service.ErrQRNotDetected):
		return http.StatusUnprocessableEntity, service.ErrQRNotDetected.Error()
	case errors.Is(err, service.ErrGateway):
		return http.StatusBadGateway, service.ErrGateway.Error()
	case errors.Is(err, service.ErrGatewayDisabled):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// respondError writes {"error": msg}, plus the offending fields for
// validation failures.
func respondError(c echo.Context, err error) error {
	code, msg := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	body := echo.Map{"error": msg}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	return c.JSON(code, body)
}
