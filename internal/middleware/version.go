package middleware

import (
	"github.com/labstack/echo/v4"
)

const apiVersion = "v1"

// Version stamps every response with the API version so clients can detect
// which contract they are talking to.
func Version() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", apiVersion)
			c.Response().Header().Set("X-Service", "catadmin")
			return next(c)
		}
	}
}
