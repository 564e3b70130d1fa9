package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"catadmin/internal/common"
	"catadmin/internal/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/categories/tree", h.GetTree)
	g.GET("/categories/roots", h.GetRoots)
	g.GET("/categories/:id", h.GetByID)
	g.GET("/categories/:id/children", h.GetChildren)
	g.GET("/categories/:id/impact", h.GetDeleteImpact)
	g.POST("/categories", h.Create)
	g.PUT("/categories/:id", h.Rename)
	g.DELETE("/categories/:id", h.Delete)
	g.POST("/categories/:id/restore", h.Restore)
}

func (h *CategoryHandler) GetTree(c echo.Context) error {
	tree, err := h.categoryService.GetTree(c.Request().Context(), queryBool(c, "include_archived"))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *CategoryHandler) GetRoots(c echo.Context) error {
	roots, err := h.categoryService.GetRootCategories(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, roots)
}

func (h *CategoryHandler) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	category, err := h.categoryService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) GetChildren(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	children, err := h.categoryService.GetSubcategories(c.Request().Context(), id, queryBool(c, "include_archived"))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, children)
}

func (h *CategoryHandler) GetDeleteImpact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	impact, err := h.categoryService.DeleteImpact(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, impact)
}

type createCategoryRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	req := new(createCategoryRequest)
	if err := c.Bind(req); err != nil {
		return common.SendError(c, common.NewError(common.CodeValidation, "invalid request body"))
	}
	category, err := h.categoryService.Add(c.Request().Context(), req.Name, req.ParentID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

type renameCategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) Rename(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	req := new(renameCategoryRequest)
	if err := c.Bind(req); err != nil {
		return common.SendError(c, common.NewError(common.CodeValidation, "invalid request body"))
	}
	category, err := h.categoryService.Rename(c.Request().Context(), id, req.Name)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	batchID, err := h.categoryService.Delete(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"batch_id": batchID})
}

func (h *CategoryHandler) Restore(c echo.Context) error {
	if err := requireActor(c); err != nil {
		return common.SendError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	category, err := h.categoryService.Restore(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}
