package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/service"
	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

// RegistrationHandler serves the public, unauthenticated endpoints used by
// parents: registering, paying, uploading proof and downloading the ticket.
type RegistrationHandler struct {
	svc service.RegistrationService
}

func NewRegistrationHandler(svc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type lookupResp struct {
	Registration *model.Registration `json:"registration"`
	DocumentURL  string              `json:"document_url"`
}

// Event returns the public event description.
func (h *RegistrationHandler) Event(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.EventInfo())
}

// Register accepts the form as JSON or urlencoded/multipart fields.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		// the registration exists even when the gateway order failed; the
		// client retries payment with the ticket number it gets back
		if res != nil && errors.Is(err, service.ErrGateway) {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error":        service.ErrGateway.Error(),
				"registration": res.Registration,
				"document_url": res.DocumentURL,
				"retry_url":    "/v1/registrations/" + res.Registration.TicketNumber + "/payment",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Lookup returns the registration and its document link.
func (h *RegistrationHandler) Lookup(c echo.Context) error {
	reg, err := h.svc.Lookup(c.Request().Context(), c.Param("ticket"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lookupResp{Registration: reg, DocumentURL: h.svc.DocumentURL(reg.TicketNumber)})
}

// InitiatePayment (re)opens a gateway order for a pending registration.
func (h *RegistrationHandler) InitiatePayment(c echo.Context) error {
	handle, err := h.svc.InitiatePayment(c.Request().Context(), c.Param("ticket"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, handle)
}

// UploadProof takes the multipart field "proof" holding a payment
// screenshot.
func (h *RegistrationHandler) UploadProof(c echo.Context) error {
	ctx := c.Request().Context()
	fh, err := c.FormFile("proof")
	if err != nil {
		// still looked up first so an unknown ticket is reported as such
		_, err := h.svc.ConfirmPayment(ctx, c.Param("ticket"), nil)
		return respondError(c, err)
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, service.ErrUploadInvalid)
	}
	defer f.Close()

	reg, err := h.svc.ConfirmPayment(ctx, c.Param("ticket"), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// GatewayNotification receives Midtrans payment notifications.  Unknown
// tickets are acknowledged so the gateway stops retrying; server errors are
// not, so it retries later.
func (h *RegistrationHandler) GatewayNotification(c echo.Context) error {
	var n payment.Notification
	if err := c.Bind(&n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	out, err := h.svc.CompleteGatewayPayment(c.Request().Context(), n)
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		log.Printf("payment: notification for unknown order %q ignored", n.OrderID)
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	case err != nil:
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Document streams the ticket PDF.
func (h *RegistrationHandler) Document(c echo.Context) error {
	path, err := h.svc.Document(c.Request().Context(), c.Param("ticket"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Attachment(path, ticket.Normalize(c.Param("ticket"))+".pdf")
}
