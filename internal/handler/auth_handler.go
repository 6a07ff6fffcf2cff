package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/token"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// リフレッシュトークンを入れるcookie名。
const refreshCookieName = "refreshToken"

// 全エラー共通のレスポンス形。errorは機械可読コード。
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorJSON(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, ErrorBody{Success: false, Message: message, Error: code})
}

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	auth         *middleware.Authenticator
	loginLimiter echo.MiddlewareFunc
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(
	uc *usecase.AuthUsecase,
	auth *middleware.Authenticator,
	loginLimiter echo.MiddlewareFunc,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		auth:         auth,
		loginLimiter: loginLimiter,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login, h.loginLimiter)
	e.POST("/auth/admin/login", h.AdminLogin, h.loginLimiter)
	e.POST("/auth/refresh", h.Refresh)
	//logoutはuser/adminどちらでも呼べる
	e.POST("/auth/logout", h.Logout, h.auth.RequireAnyOf(model.RoleUser, model.RoleAdmin))
	e.POST("/auth/password", h.ChangePassword, h.auth.RequireAnyOf(model.RoleUser, model.RoleAdmin))
	e.GET("/auth/me", h.Me, h.auth.RequireUser())
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// LoginはPOST /auth/loginのハンドラ。
// アクセストークンはbody、リフレッシュトークンはHttpOnly cookieで返す。
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, h.uc.Login)
}

// AdminLoginはPOST /auth/admin/loginのハンドラ。
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, h.uc.AdminLogin)
}

func (h *AuthHandler) login(c echo.Context, fn func(ctx context.Context, req usecase.AuthLoginRequest) (*usecase.LoginResult, error)) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	out, err := fn(c.Request().Context(), req)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.setRefreshCookie(c, out.RefreshTokenPlain, out.RefreshExpiresAt)
	return c.JSON(http.StatusOK, out.Body)
}

// RefreshはPOST /auth/refreshのハンドラ。
// 取得元の優先順位はcookie→body→X-Refresh-Tokenヘッダ（先に見つかったものだけ使う）。
// 失敗時は必ずcookieを消す（古いcookieでリトライループに入らないように）。
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		h.clearRefreshCookie(c)
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeNoToken, "refresh token required")
	}

	out, err := h.uc.Refresh(c.Request().Context(), raw)
	if err != nil {
		h.clearRefreshCookie(c)
		return h.writeAuthError(c, err)
	}

	h.setRefreshCookie(c, out.RefreshTokenPlain, out.RefreshExpiresAt)
	return c.JSON(http.StatusOK, out.Body)
}

// LogoutはPOST /auth/logoutのハンドラ。冪等（2回呼んでも200）。
func (h *AuthHandler) Logout(c echo.Context) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeNoToken, "unauthorized")
	}

	out, err := h.uc.Logout(c.Request().Context(), principal.Type, principal.ID)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, out)
}

// ChangePasswordはPOST /auth/passwordのハンドラ。
// 成功すると全セッションが失効するのでcookieも消す。
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeNoToken, "unauthorized")
	}

	var req usecase.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	out, err := h.uc.ChangePassword(c.Request().Context(), principal.Type, principal.ID, req)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, out)
}

// Meはガードが解決したPrincipalをそのまま返す簡易エンドポイント。
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeNoToken, "unauthorized")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":    principal.ID,
		"type":  principal.Type,
		"roles": principal.Roles,
	})
}

// usecaseのエラーをHTTPへ変換する唯一の場所。
// DB障害はauthエラーと混ぜず500で返す（アカウント列挙のヒントを作らない）。
func (h *AuthHandler) writeAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return errorJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input")
	case errors.Is(err, usecase.ErrConflict):
		return errorJSON(c, http.StatusConflict, "CONFLICT", "already exists")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return errorJSON(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	case errors.Is(err, usecase.ErrInactiveAccount):
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeAccountInactive, "account inactive")
	case errors.Is(err, usecase.ErrNoToken):
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeNoToken, "refresh token required")
	case errors.Is(err, token.ErrExpired):
		return errorJSON(c, http.StatusUnauthorized, middleware.CodeTokenExpired, "token expired")
	case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrWrongKind):
		return errorJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
	case errors.Is(err, usecase.ErrSessionRevoked):
		return errorJSON(c, http.StatusUnauthorized, "SESSION_REVOKED", "session revoked")
	case errors.Is(err, usecase.ErrPrincipalNotFound):
		return errorJSON(c, http.StatusUnauthorized, middleware.CodePrincipalNotFound, "unknown principal")
	default:
		return errorJSON(c, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
	}
}

// refresh tokenの取り出し。cookie→body→ヘッダの順で最初に見つかったものを使う。
func (h *AuthHandler) refreshTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken
	}

	return c.Request().Header.Get("X-Refresh-Token")
}

// refreshtoken をCookieにセット。
func (h *AuthHandler) setRefreshCookie(c echo.Context, plain string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plain,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
	})
}

// cookieを削除する。
func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
