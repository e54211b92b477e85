package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/service"
)

// OrganizerHandler serves the event-management API for organizers and
// administrators.  Ownership checks live in the services; these handlers
// only parse input and translate results.
type OrganizerHandler struct {
	Events   *service.EventService
	CheckIns *service.CheckInService
}

func NewOrganizerHandler(events *service.EventService, checkins *service.CheckInService) *OrganizerHandler {
	if events == nil || checkins == nil {
		panic("nil service passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: events, CheckIns: checkins}
}

// CreateEvent handles POST /v1/events.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Events.Create(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"event": ev})
}

// ListMyEvents handles GET /v1/events/mine.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	events, err := h.Events.ListMine(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// UpdateEvent handles PATCH /v1/events/:id.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Events.Update(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev})
}

// CancelEvent handles DELETE /v1/events/:id.  Events are never hard
// deleted: registrations reference them and the audit trail must
// survive, so cancellation flips the status and closes registration.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if err := h.Events.Cancel(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EventRegistrations handles GET /v1/events/:id/registrations, the
// attendee roster for an event the caller owns.
func (h *OrganizerHandler) EventRegistrations(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	items, err := h.Events.Attendees(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// EventStats handles GET /v1/events/:id/stats.
func (h *OrganizerHandler) EventStats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	stats, err := h.Events.Stats(c.Request().Context(), id, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
