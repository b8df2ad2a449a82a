package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/handler"
	"github.com/iliyamo/credo/internal/middleware"
)

// RegisterTasks registers the task lifecycle, rating and comment routes
// under /v1/tasks.  Every route needs a valid access token and passes the
// rate limiter.
func RegisterTasks(e *echo.Echo, t *handler.TaskHandler, r *handler.ReputationHandler,
	cm *handler.CommentHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/tasks", middleware.JWTAuth(jwtSecret), limiter)

	g.GET("", t.List)
	g.POST("", t.Create)
	g.POST("/auto-expire", t.AutoExpire)
	g.GET("/my/given", t.MyGiven)
	g.GET("/my/accepted", t.MyAccepted)
	g.GET("/my/applications", t.MyApplications)

	g.GET("/:id", t.Get)
	g.PUT("/:id", t.Update)
	g.DELETE("/:id", t.Cancel)
	g.POST("/:id/duplicate", t.Duplicate)
	g.POST("/:id/apply", t.Apply)
	g.POST("/:id/accept/:applicant", t.Accept)
	g.POST("/:id/reject/:applicant", t.Reject)
	g.POST("/:id/complete", t.Complete)
	g.POST("/:id/withdraw", t.Withdraw)
	g.POST("/:id/remove-acceptor", t.RemoveAcceptor)

	g.POST("/:id/rate", r.Rate)
	g.GET("/:id/has-rated", r.HasRated)

	g.GET("/:id/comments", cm.List)
	g.POST("/:id/comments", cm.Add)
}
