package handler

import (
	"errors"
	"net/http"
	"strconv"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者向けのユーザー管理API。全ルートがRequireAdminの下。
type AdminUserHandler struct {
	uc   *usecase.AdminUsecase
	auth *middleware.Authenticator
}

func NewAdminUserHandler(uc *usecase.AdminUsecase, auth *middleware.Authenticator) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, auth: auth}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/admin", h.auth.RequireAdmin())
	g.POST("/users/:id/force-logout", h.ForceLogout)
	g.POST("/users/:id/deactivate", h.Deactivate)
	g.POST("/users/:id/activate", h.Activate)
	g.GET("/audit-logs", h.ListAuditLogs)
}

// ForceLogoutは対象ユーザーの全セッションを失効させる。
func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	principal, _ := middleware.PrincipalFrom(c)

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
	}

	if err := h.uc.ForceLogoutUser(c.Request().Context(), principal.ID, userID); err != nil {
		return h.writeAdminError(c, err)
	}

	return c.JSON(http.StatusOK, usecase.SuccessResponse{Message: "sessions revoked"})
}

func (h *AdminUserHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *AdminUserHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *AdminUserHandler) setActive(c echo.Context, active bool) error {
	principal, _ := middleware.PrincipalFrom(c)

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
	}

	if err := h.uc.SetUserActive(c.Request().Context(), principal.ID, userID, active); err != nil {
		return h.writeAdminError(c, err)
	}

	return c.JSON(http.StatusOK, usecase.SuccessResponse{Message: "ok"})
}

func (h *AdminUserHandler) ListAuditLogs(c echo.Context) error {
	var in usecase.ListAuditLogsInput

	if v := c.QueryParam("actor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid actor_id")
		}
		in.ActorID = &id
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		}
		in.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid offset")
		}
		in.Offset = n
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), in)
	if err != nil {
		return h.writeAdminError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"items": logs})
}

func (h *AdminUserHandler) writeAdminError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrPrincipalNotFound) {
		return errorJSON(c, http.StatusNotFound, "NOT_FOUND", "user not found")
	}
	return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
