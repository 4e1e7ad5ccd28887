package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scaramou4/rereminder-bot-sub000/internal/config"
	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect Rereminder configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
		fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

// loadConfig loads .env (if present), the TOML file, and validates it.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.New(messages.FormatConfigLoadError(err))
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.New(messages.FormatValidationErrors(errs))
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
