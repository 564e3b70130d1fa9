package handlers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
	"catadmin/internal/models"
	"catadmin/internal/services"
)

type BulkHandler struct {
	bulkService services.BulkService
}

func NewBulkHandler(bulkService services.BulkService) *BulkHandler {
	return &BulkHandler{bulkService: bulkService}
}

func (h *BulkHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/bulk/preview", h.CreatePreview)
	g.GET("/bulk/:batchId", h.GetOperation)
	g.POST("/bulk/:batchId/commit", h.Commit)
	g.POST("/bulk/nuke", h.Nuke)
}

type previewRequest struct {
	CSVData string `json:"csv_data"`
}

func (h *BulkHandler) CreatePreview(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	req := new(previewRequest)
	if err := c.Bind(req); err != nil {
		return common.SendError(c, common.NewError(common.CodeValidation, "invalid request body"))
	}
	if req.CSVData == "" {
		return common.SendError(c, common.NewError(common.CodeValidation, "csv_data is required"))
	}
	result, err := h.bulkService.CreatePreview(c.Request().Context(), req.CSVData)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *BulkHandler) GetOperation(c echo.Context) error {
	op, err := h.bulkService.GetOperation(c.Request().Context(), c.Param("batchId"))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, op)
}

func (h *BulkHandler) Commit(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	batchID := c.Param("batchId")
	result, err := h.bulkService.Commit(c.Request().Context(), batchID, func(p models.BulkProgress) {
		log.Printf("import %s: %d/%d rows, %d ok, %d failed",
			batchID, p.Processed, p.Total, p.SuccessCount, p.ErrorCount)
	})
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *BulkHandler) Nuke(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	result, err := h.bulkService.NukeAllProducts(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
