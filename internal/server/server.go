package server

import (
	"net/http"

	"app/internal/config"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Routerはハンドラが自分のルートをechoに登録するための約束。
type Router interface {
	RegisterRoutes(e *echo.Echo)
}

// NewはechoインスタンスにミドルウェアとAPIルートを配線して返す。
func New(cfg config.Config, routers ...Router) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Refresh-Token"},
		AllowCredentials: true,
	}))

	//死活監視用
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	for _, r := range routers {
		r.RegisterRoutes(e)
	}

	return e
}

// Startはサーバーを起動する（ブロックする）。
func Start(e *echo.Echo, port string) error {
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = ":" + port
	}
	return e.Start(port)
}
