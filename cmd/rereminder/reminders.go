package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
)

var (
	remindersUser   int64
	remindersChat   int64
	remindersFormat string
)

// reminderRecord is the YAML form used by list and import.
type reminderRecord struct {
	ID             string `yaml:"id,omitempty"`
	UserID         int64  `yaml:"user_id"`
	ChatID         int64  `yaml:"chat_id,omitempty"`
	Description    string `yaml:"description"`
	Datetime       string `yaml:"datetime"`
	Repeat         string `yaml:"repeat,omitempty"`
	PostponedCount int    `yaml:"postponed_count,omitempty"`
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect and manage stored reminders",
	Long: `Work with the reminder database directly. Commands that create reminders
write their jobs to the jobs file; run them while the bot is stopped.`,
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active reminders of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOffline(func(ctx context.Context, o *offline) error {
			rs, err := o.manager.List(ctx, remindersUser)
			if err != nil {
				return err
			}
			loc := o.settings.Get(ctx, remindersUser).Location()
			return writeReminders(cmd.OutOrStdout(), rs, loc, remindersFormat)
		})
	},
}

var remindersAddCmd = &cobra.Command{
	Use:   `add "<text>"`,
	Short: "Create a reminder from a phrase",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID := remindersChat
		if chatID == 0 {
			chatID = remindersUser
		}
		return withOffline(func(ctx context.Context, o *offline) error {
			r, err := o.manager.Create(ctx, remindersUser, chatID, strings.Join(args, " "))
			if err != nil {
				return errors.New(messages.UserError(err))
			}
			loc := o.settings.Get(ctx, remindersUser).Location()
			fmt.Fprintln(cmd.OutOrStdout(), messages.FormatCreated(r, loc))
			return nil
		})
	},
}

var remindersImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create reminders from a YAML list (the output of list --format yaml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var records []reminderRecord
		if err := yaml.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		return withOffline(func(ctx context.Context, o *offline) error {
			created, skipped, err := importReminders(ctx, o, records)
			fmt.Fprintf(cmd.OutOrStdout(), "imported: %d, skipped duplicates: %d\n", created, skipped)
			return err
		})
	},
}

func importReminders(ctx context.Context, o *offline, records []reminderRecord) (created, skipped int, err error) {
	for i, rec := range records {
		at, perr := time.Parse(time.RFC3339, rec.Datetime)
		if perr != nil {
			return created, skipped, fmt.Errorf("record %d: invalid datetime %q: %w", i+1, rec.Datetime, perr)
		}
		chatID := rec.ChatID
		if chatID == 0 {
			chatID = rec.UserID
		}

		_, cerr := o.manager.CreateFromFields(ctx, rec.UserID, chatID, rec.Description, at, rec.Repeat)
		switch {
		case errors.Is(cerr, reminder.ErrDuplicate):
			skipped++
		case cerr != nil:
			return created, skipped, fmt.Errorf("record %d: %w", i+1, cerr)
		default:
			created++
		}
	}
	return created, skipped, nil
}

func writeReminders(w io.Writer, rs []reminder.Reminder, loc *time.Location, format string) error {
	switch format {
	case "text", "":
		_, err := fmt.Fprintln(w, messages.FormatList(rs, loc))
		return err
	case "yaml":
		records := make([]reminderRecord, 0, len(rs))
		for _, r := range rs {
			records = append(records, reminderRecord{
				ID:             r.ID,
				UserID:         r.UserID,
				ChatID:         r.ChatID,
				Description:    r.Description,
				Datetime:       r.Datetime.In(loc).Format(time.RFC3339),
				Repeat:         r.Repeat,
				PostponedCount: r.PostponedCount,
			})
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (expected: text, yaml)", format)
	}
}

func withOffline(fn func(ctx context.Context, o *offline) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Logging.Level = "warn"
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	o, err := openOffline(cfg, log)
	if err != nil {
		return err
	}
	defer o.Close()

	return fn(context.Background(), o)
}

func init() {
	for _, c := range []*cobra.Command{remindersListCmd, remindersAddCmd} {
		c.Flags().Int64VarP(&remindersUser, "user", "u", 0, "Telegram user id")
		_ = c.MarkFlagRequired("user")
	}
	remindersListCmd.Flags().StringVarP(&remindersFormat, "format", "f", "text", "output format: text or yaml")
	remindersAddCmd.Flags().Int64Var(&remindersChat, "chat", 0, "chat id (default: the user id)")

	remindersCmd.AddCommand(remindersListCmd, remindersAddCmd, remindersImportCmd)
}
