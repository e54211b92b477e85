package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/service"
)

// CheckInHandler serves the gate workflow used by staff devices.  The
// routes assume RequireRole has already limited access to organizers
// and administrators.
type CheckInHandler struct {
	CheckIns *service.CheckInService
}

func NewCheckInHandler(checkins *service.CheckInService) *CheckInHandler {
	if checkins == nil {
		panic("nil service passed to NewCheckInHandler")
	}
	return &CheckInHandler{CheckIns: checkins}
}

type scanReq struct {
	TicketCode string `json:"ticket_code"`
	Notes      string `json:"notes"`
}

type manualReq struct {
	RegistrationID uint64 `json:"registration_id"`
	Notes          string `json:"notes"`
}

// Scan handles POST /v1/checkins/scan: admit a ticket by its scanned QR
// payload.  Racing scanners on the same ticket produce exactly one 200;
// the rest get 409.
func (h *CheckInHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	code := strings.TrimSpace(req.TicketCode)
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_code required"})
	}
	res, err := h.CheckIns.Scan(c.Request().Context(), code, middleware.UserID(c), req.Notes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"check_in": res})
}

// Manual handles POST /v1/checkins/manual: admit an attendee by
// registration id when their ticket cannot be scanned.
func (h *CheckInHandler) Manual(c echo.Context) error {
	var req manualReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RegistrationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration_id required"})
	}
	res, err := h.CheckIns.Manual(c.Request().Context(), req.RegistrationID, middleware.UserID(c), req.Notes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"check_in": res})
}

// History handles GET /v1/events/:id/checkins.
func (h *CheckInHandler) History(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	items, err := h.CheckIns.History(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Recent handles GET /v1/events/:id/checkins/recent, the live arrivals
// feed.  The optional limit query parameter caps the result (default 10).
func (h *CheckInHandler) Recent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 100"})
		}
		limit = n
	}
	items, err := h.CheckIns.Recent(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Stats handles GET /v1/events/:id/checkins/stats.
func (h *CheckInHandler) Stats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	stats, err := h.CheckIns.Stats(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
