package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
)

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewError(common.CodeValidation, "invalid %s", name)
	}
	return id, nil
}

// requireActor rejects mutations that arrive without an actor header.
func requireActor(c echo.Context) error {
	if _, ok := common.GetActorIDFromContext(c.Request().Context()); !ok {
		return common.NewError(common.CodeValidation, "X-Actor-ID header is required")
	}
	return nil
}

func queryBool(c echo.Context, name string) bool {
	return c.QueryParam(name) == "true"
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
