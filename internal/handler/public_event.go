// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  This file defines the public event catalogue: routes that let
// unauthenticated users discover events without an account.  Organizer ids
// and registration internals are filtered from responses.

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/service"
)

// PublicHandler serves the unauthenticated event catalogue.
type PublicHandler struct {
	Events *service.EventService
}

func NewPublicHandler(events *service.EventService) *PublicHandler {
	return &PublicHandler{Events: events}
}

// PublicEvent is an event as shown in the catalogue.  RemainingSpots is a
// snapshot; the authoritative capacity check happens at registration time.
type PublicEvent struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location"`
	Category       string    `json:"category,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Capacity       uint32    `json:"capacity"`
	RemainingSpots uint32    `json:"remaining_spots"`
}

func toPublicEvent(ev model.Event) PublicEvent {
	return PublicEvent{
		ID:             ev.ID,
		Title:          ev.Title,
		Description:    ev.Description,
		Location:       ev.Location,
		Category:       ev.Category,
		StartsAt:       ev.StartsAt,
		EndsAt:         ev.EndsAt,
		Capacity:       ev.Capacity,
		RemainingSpots: ev.Remaining(),
	}
}

// ListEvents handles GET /v1/events.  Query parameters: q (search in
// title/description), category, location, status, from, to (RFC 3339).
// The catalogue defaults to ACTIVE events; status=CANCELLED surfaces
// what was called off.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	status := strings.ToUpper(c.QueryParam("status"))
	if status != model.EventStatusCancelled {
		status = model.EventStatusActive
	}
	f := repository.EventFilter{
		Search:   c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Location: c.QueryParam("location"),
		Status:   status,
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
		f.To = t
	}

	events, err := h.Events.Browse(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toPublicEvent(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent handles GET /v1/events/:id.  Cancelled events still resolve
// so ticket holders can see what happened to them.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Events.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	out := toPublicEvent(*ev)
	return c.JSON(http.StatusOK, echo.Map{"event": out, "status": ev.Status})
}
