package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
	"catadmin/internal/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/stats", h.GetStats)
	g.GET("/export/products", h.ExportProducts)
	g.GET("/export/products/archive", h.ExportProductsArchive)
}

func (h *StatsHandler) GetStats(c echo.Context) error {
	stats, err := h.statsService.GetStats(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) ExportProducts(c echo.Context) error {
	categoryID, err := optionalCategoryID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	csv, err := h.statsService.ExportProductsCSV(c.Request().Context(), categoryID)
	if err != nil {
		return common.SendError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(csv))
}

func (h *StatsHandler) ExportProductsArchive(c echo.Context) error {
	categoryID, err := optionalCategoryID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	url, err := h.statsService.ExportProductsArchive(c.Request().Context(), categoryID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func optionalCategoryID(c echo.Context) (*int64, error) {
	raw := c.QueryParam("category_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, common.NewError(common.CodeValidation, "invalid category_id")
	}
	return &id, nil
}
