package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lulgamer69/event-ticket-system/internal/service"
)

// GateHandler serves ticket redemption for gate staff.
type GateHandler struct {
	svc service.GateService
}

func NewGateHandler(svc service.GateService) *GateHandler {
	return &GateHandler{svc: svc}
}

type redeemReq struct {
	TicketNumber string `json:"ticket_number" form:"ticket_number"`
}

// Redeem accepts either {"ticket_number": "..."} or a multipart upload of
// the scanned QR under "qr_image".  The verdict decides the status code:
// 200 OK, 409 ALREADY_USED, 404 INVALID.  The body is the same in all three.
func (h *GateHandler) Redeem(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		res *service.RedeemResult
		err error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, ferr := c.FormFile("qr_image")
		if ferr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_image required"})
		}
		f, ferr := fh.Open()
		if ferr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_image unreadable"})
		}
		defer f.Close()
		res, err = h.svc.RedeemImage(ctx, f)
	} else {
		var req redeemReq
		if berr := c.Bind(&req); berr != nil || strings.TrimSpace(req.TicketNumber) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_number required"})
		}
		res, err = h.svc.Redeem(ctx, req.TicketNumber)
	}
	if err != nil {
		return respondError(c, err)
	}

	switch res.Status {
	case service.RedeemOK:
		return c.JSON(http.StatusOK, res)
	case service.RedeemAlreadyUsed:
		return c.JSON(http.StatusConflict, res)
	default:
		return c.JSON(http.StatusNotFound, res)
	}
}
