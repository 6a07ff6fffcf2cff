package middleware

import (
	"errors"
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/token"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// contextに入れる正規化済みPrincipalのキー。
const CtxPrincipalKey = "principal"

// 401/403で返す機械可読コード。クライアントはTOKEN_EXPIREDのときだけ
// refresh→リトライし、それ以外は再ログインに誘導する。
const (
	CodeNoToken           = "NO_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenMalformed    = "TOKEN_MALFORMED"
	CodeTokenWrongKind    = "TOKEN_WRONG_KIND"
	CodeAccountInactive   = "ACCOUNT_INACTIVE"
	CodePrincipalNotFound = "PRINCIPAL_NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL"
)

type guardErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func reject(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, guardErrorResponse{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// Authenticatorは唯一の認証ミドルウェア。
// トークン検証・ロール解決をここに集約し、
// 「どのロールを要求するか」だけをガードごとのパラメータにする。
type Authenticator struct {
	codec    *token.Codec
	resolver *usecase.RoleResolver
}

func NewAuthenticator(codec *token.Codec, resolver *usecase.RoleResolver) *Authenticator {
	return &Authenticator{codec: codec, resolver: resolver}
}

// RequireUserは認証済み・アクティブなら誰でも通す。
func (a *Authenticator) RequireUser() echo.MiddlewareFunc {
	return a.require()
}

// RequireAdminはadminロール必須。
func (a *Authenticator) RequireAdmin() echo.MiddlewareFunc {
	return a.require(model.RoleAdmin)
}

// RequireManufacturerはmanufacturerロール必須。
// ロールはResolverが毎回ManufacturerProfileを見て決めるので、
// 承認を取り消された出品者は次のリクエストから即403になる。
func (a *Authenticator) RequireManufacturer() echo.MiddlewareFunc {
	return a.require(model.RoleManufacturer)
}

// RequireAnyOfは指定ロールのどれかがあれば通す（OR）。
func (a *Authenticator) RequireAnyOf(roles ...model.Role) echo.MiddlewareFunc {
	return a.require(roles...)
}

// requireが全ガードの実体。rolesが空なら「認証さえ通ればよい」。
func (a *Authenticator) require(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, rejected := a.authenticate(c)
			if rejected != nil {
				return rejected(c)
			}

			if len(roles) > 0 {
				ok := false
				for _, r := range roles {
					if principal.HasRole(r) {
						ok = true
						break
					}
				}
				if !ok {
					return reject(c, http.StatusForbidden, CodeForbidden, "insufficient role")
				}
			}

			c.Set(CtxPrincipalKey, principal)
			return next(c)
		}
	}
}

// Optionalはトークンがあれば principal を添えるが、
// 無い・無効でもリクエストは落とさない（公開＋個別化の混在エンドポイント用）。
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return next(c)
			}

			claims, err := a.codec.Verify(raw, token.KindAccess)
			if err != nil {
				//無効トークンは匿名扱い
				return next(c)
			}

			id, err := claims.PrincipalID()
			if err != nil {
				return next(c)
			}

			principal, err := a.resolver.Resolve(c.Request().Context(), claims.PrincipalType, id)
			if err != nil {
				if errors.Is(err, usecase.ErrPrincipalNotFound) {
					return next(c)
				}
				//DB障害は認証エラーにしない
				return reject(c, http.StatusInternalServerError, CodeInternal, "internal error")
			}
			if !principal.IsActive {
				return next(c)
			}

			c.Set(CtxPrincipalKey, principal)
			return next(c)
		}
	}
}

// authenticateはBearerアクセストークンの検証＋ロール解決。
// 失敗時はレスポンスを書く関数を返す（成功ならnil）。
func (a *Authenticator) authenticate(c echo.Context) (model.Principal, func(echo.Context) error) {
	raw := bearerToken(c)
	if raw == "" {
		return model.Principal{}, func(c echo.Context) error {
			return reject(c, http.StatusUnauthorized, CodeNoToken, "authorization header required")
		}
	}

	claims, err := a.codec.Verify(raw, token.KindAccess)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return model.Principal{}, func(c echo.Context) error {
				return reject(c, http.StatusUnauthorized, CodeTokenExpired, "access token expired")
			}
		case errors.Is(err, token.ErrWrongKind):
			return model.Principal{}, func(c echo.Context) error {
				return reject(c, http.StatusUnauthorized, CodeTokenWrongKind, "not an access token")
			}
		default:
			return model.Principal{}, func(c echo.Context) error {
				return reject(c, http.StatusUnauthorized, CodeTokenMalformed, "invalid access token")
			}
		}
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return model.Principal{}, func(c echo.Context) error {
			return reject(c, http.StatusUnauthorized, CodeTokenMalformed, "invalid access token")
		}
	}

	//認可はトークンのrolesではなく、毎回DBの今の状態で決める
	principal, err := a.resolver.Resolve(c.Request().Context(), claims.PrincipalType, id)
	if err != nil {
		if errors.Is(err, usecase.ErrPrincipalNotFound) {
			return model.Principal{}, func(c echo.Context) error {
				return reject(c, http.StatusUnauthorized, CodePrincipalNotFound, "unknown principal")
			}
		}
		//DB障害は5xx。認証失敗と混ぜない
		return model.Principal{}, func(c echo.Context) error {
			return reject(c, http.StatusInternalServerError, CodeInternal, "internal error")
		}
	}

	//停止済みはトークンが有効でも通さない
	if !principal.IsActive {
		return model.Principal{}, func(c echo.Context) error {
			return reject(c, http.StatusUnauthorized, CodeAccountInactive, "account inactive")
		}
	}

	return principal, nil
}

// PrincipalFromはガードが入れたPrincipalを取り出す。
// Optionalルートでは第2戻り値で存在確認する。
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	v := c.Get(CtxPrincipalKey)
	p, ok := v.(model.Principal)
	return p, ok
}

// Authorizationヘッダから"Bearer xxx"のトークン部分を取り出す。
// アクセストークンはヘッダのみ（cookieは見ない）。
func bearerToken(c echo.Context) string {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return ""
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
