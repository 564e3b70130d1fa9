package middleware

import (
	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
)

// ActorHeader identifies the user performing a change. It flows into the
// request context and from there into every history entry.
const ActorHeader = "X-Actor-ID"

// Actor copies the actor header into the request context when present.
// Enforcement happens per route: reads work without an actor, mutations
// refuse to run without one.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actorID := c.Request().Header.Get(ActorHeader)
			if actorID != "" {
				ctx := common.WithActorID(c.Request().Context(), actorID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
