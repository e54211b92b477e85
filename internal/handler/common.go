package handler // handler defines http handlers

import (
	"errors"   // errors.Is comparisons against sentinels
	"net/http" // HTTP status codes
	"strconv"  // path parameter parsing

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/service"
)

// pathID parses the named path parameter as a uint64 id.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// fail translates a service or repository error into the JSON error
// response the API contract promises.  Sentinels map to 4xx statuses;
// anything unrecognized is a 500 with a generic message so internal
// details never leak to clients.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrAtCapacity),
		errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrAlreadyCheckedIn),
		errors.Is(err, repository.ErrAlreadyCancelled),
		errors.Is(err, repository.ErrTicketCancelled),
		errors.Is(err, repository.ErrCapacityBelowRegistered),
		errors.Is(err, service.ErrEventPast),
		errors.Is(err, service.ErrEventNotActive),
		errors.Is(err, service.ErrTooEarly):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
