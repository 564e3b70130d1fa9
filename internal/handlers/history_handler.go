package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
	"catadmin/internal/services"
)

type HistoryHandler struct {
	historyService services.HistoryService
}

func NewHistoryHandler(historyService services.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/history", h.GetRecent)
	g.GET("/history/batches", h.GetBulkOperations)
	g.GET("/history/:entityType/:id", h.GetEntityHistory)
	g.POST("/history/:id/revert", h.Revert)
	g.POST("/history/batches/:batchId/revert", h.RevertBatch)
}

func (h *HistoryHandler) GetRecent(c echo.Context) error {
	entries, err := h.historyService.GetRecentHistory(c.Request().Context(),
		queryInt(c, "limit", 50), c.QueryParam("entity_type"))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *HistoryHandler) GetEntityHistory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	entries, err := h.historyService.GetEntityHistory(c.Request().Context(), c.Param("entityType"), id, queryInt(c, "limit", 50))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *HistoryHandler) GetBulkOperations(c echo.Context) error {
	ops, err := h.historyService.GetBulkOperations(c.Request().Context(), queryInt(c, "limit", 20))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, ops)
}

func (h *HistoryHandler) Revert(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	entry, err := h.historyService.RevertChange(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *HistoryHandler) RevertBatch(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	result, err := h.historyService.RevertBulkOperation(c.Request().Context(), c.Param("batchId"))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
