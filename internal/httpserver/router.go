package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/middleware/auth"
)

type Deps struct {
	AccountHandler *AccountHTTP
	Auth           *auth.BearerAuth
	// Ready reports whether backing stores answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	h := d.AccountHandler
	account := e.Group("/account")

	account.POST("/register", h.Register)
	account.POST("/login", h.Login)
	account.POST("/forgot", h.Forgot)
	account.POST("/reset/:token", h.Reset)

	account.GET("", h.List, d.Auth.RequireAdmin)
	account.GET("/", h.List, d.Auth.RequireAdmin)
	account.GET("/search", h.Search, d.Auth.RequireAdmin)

	account.GET("/jwt/refresh", h.Refresh, d.Auth.RequireAuth)
	account.POST("/profile", h.UpdateProfile, d.Auth.RequireAuth)
	account.POST("/password", h.ChangePassword, d.Auth.RequireAuth)
	account.POST("/delete", h.Delete, d.Auth.RequireAuth)
}
