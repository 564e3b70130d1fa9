package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"catadmin/internal/repositories"
)

type HealthHandler struct {
	db repositories.DB
}

func NewHealthHandler(db repositories.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(c echo.Context) error {
	var ok int
	if err := h.db.QueryRow(c.Request().Context(), "SELECT 1").Scan(&ok); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
