package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 出品者申請（ユーザー側）と承認・取り消し（管理者側）。
type ManufacturerHandler struct {
	uc   *usecase.ManufacturerUsecase
	auth *middleware.Authenticator
}

func NewManufacturerHandler(uc *usecase.ManufacturerUsecase, auth *middleware.Authenticator) *ManufacturerHandler {
	return &ManufacturerHandler{uc: uc, auth: auth}
}

func (h *ManufacturerHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/manufacturers/apply", h.Apply, h.auth.RequireUser())
	e.GET("/manufacturers/me", h.Status, h.auth.RequireUser())

	admin := e.Group("/admin/manufacturers", h.auth.RequireAdmin())
	admin.POST("/:user_id/approve", h.Approve)
	admin.POST("/:user_id/revoke", h.Revoke)
}

func (h *ManufacturerHandler) Apply(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	var req usecase.ApplyManufacturerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	out, err := h.uc.Apply(c.Request().Context(), principal.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrValidation):
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input")
		case errors.Is(err, usecase.ErrConflict):
			return errorJSON(c, http.StatusConflict, "CONFLICT", "already applied")
		default:
			return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
		}
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *ManufacturerHandler) Status(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	out, err := h.uc.Status(c.Request().Context(), principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrManufacturerProfileNotFound) {
			return errorJSON(c, http.StatusNotFound, "NOT_FOUND", "no application")
		}
		return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
	}

	return c.JSON(http.StatusOK, out)
}

// Approveの次のリクエストからmanufacturerロールが有効になる。
func (h *ManufacturerHandler) Approve(c echo.Context) error {
	return h.review(c, h.uc.Approve)
}

// Revokeの次のリクエストからmanufacturerロールが消える
// （発行済みアクセストークンに古いrolesが残っていても効かない）。
func (h *ManufacturerHandler) Revoke(c echo.Context) error {
	return h.review(c, h.uc.Revoke)
}

func (h *ManufacturerHandler) review(c echo.Context, fn func(ctx context.Context, adminID int64, userID int64) error) error {
	principal, _ := middleware.PrincipalFrom(c)

	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user_id")
	}

	if err := fn(c.Request().Context(), principal.ID, userID); err != nil {
		if errors.Is(err, repository.ErrManufacturerProfileNotFound) {
			return errorJSON(c, http.StatusNotFound, "NOT_FOUND", "no application")
		}
		return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
	}

	return c.JSON(http.StatusOK, usecase.SuccessResponse{Message: "ok"})
}
