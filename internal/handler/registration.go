package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/service"
	"github.com/iliyamo/event-registration/internal/ticket"
)

// RegistrationHandler serves the attendee-facing ticket lifecycle.
type RegistrationHandler struct {
	Registrations *service.RegistrationService
	QRSize        int // default edge length for rendered QR images
}

func NewRegistrationHandler(regs *service.RegistrationService, qrSize int) *RegistrationHandler {
	if regs == nil {
		panic("nil service passed to NewRegistrationHandler")
	}
	if qrSize <= 0 {
		qrSize = ticket.DefaultQRSize
	}
	return &RegistrationHandler{Registrations: regs, QRSize: qrSize}
}

// Register handles POST /v1/events/:id/register.  On success the
// response carries the full registration including the ticket code the
// attendee will present at the gate.
func (h *RegistrationHandler) Register(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	reg, err := h.Registrations.Register(c.Request().Context(), eventID, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"registration": reg})
}

// ListMine handles GET /v1/my-registrations.
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	items, err := h.Registrations.ListMine(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/registrations/:id.
func (h *RegistrationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Registrations.Get(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": reg})
}

// TicketQR handles GET /v1/registrations/:id/qr and responds with a PNG
// image of the ticket's QR code.  The optional size query parameter sets
// the edge length in pixels.
func (h *RegistrationHandler) TicketQR(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	size := h.QRSize
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be between 64 and 1024"})
		}
		size = n
	}
	png, err := h.Registrations.TicketPNG(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c), size)
	if err != nil {
		return fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Cancel handles DELETE /v1/registrations/:id.  The seat is released
// atomically with the status change; checked-in registrations cannot be
// cancelled.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	if err := h.Registrations.Cancel(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
