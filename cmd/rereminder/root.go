package main

import (
	"github.com/spf13/cobra"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rereminder",
	Short: "Rereminder - Telegram reminders in plain Russian",
	Long: `Rereminder is a Telegram bot that turns phrases like
"завтра в 9 позвонить маме" or "каждый день в 8 таблетки" into reminders
and keeps nudging until a reminder is marked as done.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "path to config.toml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(remindersCmd)
}
