package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
	"catadmin/internal/models"
	"catadmin/internal/services"
)

type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/products", h.Search)
	g.GET("/products/:id", h.GetByID)
	g.POST("/products", h.Create)
	g.PUT("/products/:id", h.Update)
	g.DELETE("/products/:id", h.Delete)
	g.POST("/products/:id/restore", h.Restore)
}

func (h *ProductHandler) Search(c echo.Context) error {
	filter := &models.ProductSearchFilter{
		Query:    c.QueryParam("q"),
		Status:   c.QueryParam("status"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return common.SendError(c, common.NewError(common.CodeValidation, "invalid category_id"))
		}
		filter.CategoryID = &categoryID
	}
	result, err := h.productService.Search(c.Request().Context(), filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if queryBool(c, "with_category") {
		product, err := h.productService.GetWithCategory(c.Request().Context(), id)
		if err != nil {
			return common.SendError(c, err)
		}
		return c.JSON(http.StatusOK, product)
	}
	product, err := h.productService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Create(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	req := new(services.AddProductRequest)
	if err := c.Bind(req); err != nil {
		return common.SendError(c, common.NewError(common.CodeValidation, "invalid request body"))
	}
	product, err := h.productService.Add(c.Request().Context(), req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	req := new(services.UpdateProductRequest)
	if err := c.Bind(req); err != nil {
		return common.SendError(c, common.NewError(common.CodeValidation, "invalid request body"))
	}
	product, err := h.productService.Update(c.Request().Context(), id, req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.productService.Delete(c.Request().Context(), id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) Restore(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	product, err := h.productService.Restore(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}
