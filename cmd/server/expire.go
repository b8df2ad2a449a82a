package main

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/credo/internal/database"
	"github.com/iliyamo/credo/internal/queue"
	"github.com/iliyamo/credo/internal/repository"
	"github.com/iliyamo/credo/internal/service"
)

// purgeGrace keeps dead sessions around for a day before deleting them.
const purgeGrace = 24 * time.Hour

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Cancel overdue open tasks and purge dead refresh sessions, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		var pub service.Publisher
		if cfg.EventsEnabled {
			pub = queue.NewAMQPPublisher(cfg.AMQPURL)
		}
		tasks := repository.NewTaskRepo(db)
		apps := repository.NewApplicationRepo(db)
		rep := service.NewReputation(db, repository.NewUserRepo(db), tasks, apps, repository.NewRatingRepo(db), pub)
		l := service.NewLifecycle(db, tasks, apps, repository.NewCommentRepo(db), rep, pub)

		n, err := l.AutoExpire(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int64("count", n).Msg("expire sweep finished")

		purged, err := repository.NewTokenRepo(db).PurgeExpired(cmd.Context(), time.Now().Add(-purgeGrace))
		if err != nil {
			return err
		}
		log.Info().Int64("count", purged).Msg("refresh sessions purged")
		return nil
	},
}
