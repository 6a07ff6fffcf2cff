package handler

import (
	"net/http"
	"strconv"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return errorJSON(c, he.Status, httpErrorCode(he.Status), he.Message)
	}

	//500
	return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusForbidden:
		return middleware.CodeForbidden
	default:
		return middleware.CodeInternal
	}
}

// 商品API。公開側・出品者側・管理者側をここでまとめて配線する。
type ProductHandler struct {
	uc   *usecase.ProductUsecase
	auth *middleware.Authenticator
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, auth *middleware.Authenticator) *ProductHandler {
	return &ProductHandler{uc: uc, auth: auth}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	//公開＋個別化（出品者本人は非公開商品も見える）
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail, h.auth.Optional())

	//出品者専用
	seller := e.Group("/seller/products", h.auth.RequireManufacturer())
	seller.GET("", h.listMine)
	seller.POST("", h.create)
	seller.PUT("/:id", h.update)

	//管理者の取り下げ
	e.DELETE("/admin/products/:id", h.takedown, h.auth.RequireAdmin())
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid page")
		}
		page = p
	}

	// limit（default 20）
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		}
		limit = l
	}

	var minPrice *int64
	if v := c.QueryParam("min_price"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid min_price")
		}
		minPrice = &x
	}

	var maxPrice *int64
	if v := c.QueryParam("max_price"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid max_price")
		}
		maxPrice = &x
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
	}

	//Optionalガード：ログイン中の出品者なら自分の非公開商品も見える
	var viewerID int64
	if principal, ok := middleware.PrincipalFrom(c); ok {
		viewerID = principal.ID
	}

	p, err := h.uc.GetProductForViewer(c.Request().Context(), id, viewerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) listMine(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	items, err := h.uc.ListMyProducts(c.Request().Context(), principal.ID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *ProductHandler) create(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	var in usecase.CreateProductInput
	if err := c.Bind(&in); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	p, err := h.uc.CreateProduct(c.Request().Context(), principal.ID, in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
	}

	var in usecase.UpdateProductInput
	if err := c.Bind(&in); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	p, err := h.uc.UpdateMyProduct(c.Request().Context(), principal.ID, id, in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) takedown(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
	}

	if err := h.uc.AdminTakedown(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
