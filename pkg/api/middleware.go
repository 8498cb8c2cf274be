package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// requireInit blocks API traffic when dependency construction failed.
func (s *Server) requireInit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.initFailed || s.deps == nil {
			return c.String(http.StatusServiceUnavailable, "service unavailable")
		}
		return next(c)
	}
}

// requireAPIKey gates requests on X-API-Key. An empty configured key
// disables the gate.
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		expected := s.deps.Config.APIKey
		if expected == "" {
			return next(c)
		}
		provided := c.Request().Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return c.String(http.StatusUnauthorized, "invalid or missing API key")
		}
		return next(c)
	}
}

// operationDeadline enforces the top-level operation timeout on every
// API call.
func (s *Server) operationDeadline(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), s.deps.Config.OperationTimeout)
		defer cancel()
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
