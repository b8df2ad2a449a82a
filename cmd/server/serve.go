package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/credo/internal/config"
	"github.com/iliyamo/credo/internal/database"
	"github.com/iliyamo/credo/internal/handler"
	"github.com/iliyamo/credo/internal/metrics"
	"github.com/iliyamo/credo/internal/middleware"
	"github.com/iliyamo/credo/internal/queue"
	"github.com/iliyamo/credo/internal/repository"
	"github.com/iliyamo/credo/internal/router"
	"github.com/iliyamo/credo/internal/service"
	"github.com/iliyamo/credo/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the expiry sweeper and the activity consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var pub service.Publisher
	if cfg.EventsEnabled {
		pub = queue.NewAMQPPublisher(cfg.AMQPURL)
		go queue.StartActivityConsumer(ctx, cfg.AMQPURL, cfg.ActivityLog)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tasks := repository.NewTaskRepo(db)
	apps := repository.NewApplicationRepo(db)
	ratings := repository.NewRatingRepo(db)
	comments := repository.NewCommentRepo(db)

	reputation := service.NewReputation(db, users, tasks, apps, ratings, pub)
	lifecycle := service.NewLifecycle(db, tasks, apps, comments, reputation, pub)
	threads := service.NewCommentService(tasks, comments)

	go service.NewExpiryWorker(lifecycle, cfg.SweepInterval).Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = utils.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Middleware())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	repHandler := handler.NewReputationHandler(reputation)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterTasks(e, handler.NewTaskHandler(lifecycle), repHandler,
		handler.NewCommentHandler(threads), cfg.JWTSecret, limiter)
	router.RegisterReputation(e, repHandler, cfg.JWTSecret, limiter, cache)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
