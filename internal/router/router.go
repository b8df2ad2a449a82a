package router // package router registers the HTTP routes of the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/handler"
	"github.com/iliyamo/credo/internal/metrics"
	"github.com/iliyamo/credo/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers session endpoints.  Register, login, refresh and
// logout live under /v1/auth without a token; /v1/me needs one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}
