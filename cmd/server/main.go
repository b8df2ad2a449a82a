package main // Entry point package

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/credo/internal/config"
	"github.com/iliyamo/credo/internal/middleware"
)

var rootCmd = &cobra.Command{
	Use:   "credo",
	Short: "Peer task marketplace API",
	Long: `credo serves the task marketplace API: users post tasks, apply,
accept, complete and rate each other.  Without a subcommand it runs the
HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, expireCmd)
}

// loadConfig reads the environment and configures the global logger.
func loadConfig() config.Config {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "credo")
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
