package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/handler"
	"github.com/iliyamo/credo/internal/middleware"
)

// RegisterReputation registers profile, rating history and leaderboard
// routes.  Reads go through the Redis response cache.
func RegisterReputation(e *echo.Echo, r *handler.ReputationHandler, jwtSecret string,
	limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), limiter)

	g.GET("/profile", r.MyProfile, cache)
	g.PUT("/profile", r.UpdateProfile)
	g.GET("/users/:id/profile", r.UserProfile, cache)
	g.GET("/ratings", r.MyRatings)
	g.GET("/users/:id/ratings", r.UserRatings)
	g.GET("/leaderboard", r.Leaderboard, cache)
}
