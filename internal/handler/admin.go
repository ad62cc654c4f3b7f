package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lulgamer69/event-ticket-system/internal/service"
)

// AdminHandler serves payment review and the outbound message view.
type AdminHandler struct {
	svc service.AdminService
}

func NewAdminHandler(svc service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListPayments: ?status=PENDING,AWAITING_VERIFICATION
func (h *AdminHandler) ListPayments(c echo.Context) error {
	statuses, err := service.ParsePaymentStatuses(c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	rows, err := h.svc.ListPayments(c.Request().Context(), statuses)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows, "count": len(rows)})
}

func (h *AdminHandler) VerifyPayment(c echo.Context) error {
	reg, err := h.svc.VerifyPayment(c.Request().Context(), c.Param("ticket"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListMessages: ?status=FAILED&limit=50
func (h *AdminHandler) ListMessages(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), c.QueryParam("status"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": msgs, "count": len(msgs)})
}

func (h *AdminHandler) ResendMessage(c echo.Context) error {
	msg, err := h.svc.ResendMessage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, msg)
}
