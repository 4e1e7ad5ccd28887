package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scaramou4/rereminder-bot-sub000/internal/app"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/version"
)

var serveLogLevel string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reminder bot (main command)",
	Long: `Start the bot with the given configuration: storage, job scheduler,
worker pool, Telegram long polling, cleanup and the metrics endpoint.
SIGINT and SIGTERM trigger a graceful shutdown.`,
	RunE: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	log.Info(version.FormatStartupMessage(),
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "settings", Value: cfg.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log, app.WithConfigPath(configPath)).Run(ctx); err != nil {
		log.Error("Application stopped with error", err)
		return err
	}
	log.Info("Goodbye")
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "override logging.level (debug, info, warn, error)")
}
