package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// respondError translates service-layer errors into HTTP responses.
// InvalidInput → 400, NotFound → 404, Conflict → 409, Timeout → 408,
// anything else → 500 with a generic message; full detail goes to the
// logs only.
func respondError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, models.ErrInvalidFilter):
		return c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		return c.String(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return c.String(http.StatusRequestTimeout, "operation timed out")
	default:
		slog.Error("api.request.failed",
			"path", c.Request().URL.Path,
			"error", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
}
