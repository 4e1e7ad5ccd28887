package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/recurrence"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

var (
	parseNow     string
	parseTZ      string
	parseMorning string
	parseEvening string
	parseWhen    bool
)

// parseOutput is the YAML view of a parse result.
type parseOutput struct {
	Input       string `yaml:"input"`
	TimeSpec    string `yaml:"time_spec,omitempty"`
	Description string `yaml:"description,omitempty"`
	Repeat      string `yaml:"repeat,omitempty"`
	Datetime    string `yaml:"datetime"`
	Interval    string `yaml:"interval,omitempty"`
	Next        string `yaml:"next,omitempty"`
}

// parseCmd runs the temporal parser on a phrase without touching storage.
var parseCmd = &cobra.Command{
	Use:   `parse "<text>"`,
	Short: "Show how a reminder phrase is understood",
	Long: `Parse a reminder phrase the same way the bot does and print the result
as YAML. With --when the text is read as a postpone delay ("45", "через 2 часа").`,
	Example: `  rereminder parse "каждый понедельник в 9 планёрка"
  rereminder parse --now "2025-03-07 11:00" "завтра вечером позвонить маме"
  rereminder parse --when "1,5 часа"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		loc, err := time.LoadLocation(parseTZ)
		if err != nil {
			return fmt.Errorf("invalid --tz %q: %w", parseTZ, err)
		}
		now := time.Now().In(loc)
		if parseNow != "" {
			if now, err = time.ParseInLocation("2006-01-02 15:04", parseNow, loc); err != nil {
				return fmt.Errorf("invalid --now %q (expected YYYY-MM-DD HH:MM): %w", parseNow, err)
			}
		}

		opts := timeparse.Options{Location: loc}
		if opts.Morning, err = timeparse.ParseClock(parseMorning); err != nil {
			return fmt.Errorf("invalid --morning: %w", err)
		}
		if opts.Evening, err = timeparse.ParseClock(parseEvening); err != nil {
			return fmt.Errorf("invalid --evening: %w", err)
		}

		out, err := runParse(timeparse.New(logger.Nop()), text, now, opts, parseWhen)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func runParse(p *timeparse.Parser, text string, now time.Time, opts timeparse.Options, when bool) (*parseOutput, error) {
	out := &parseOutput{Input: text}

	if when {
		at, err := p.ParseWhen(text, now, opts)
		if err != nil {
			return nil, describeParseError(err)
		}
		out.Datetime = at.In(opts.Location).Format(time.RFC3339)
		return out, nil
	}

	res, err := p.Parse(text, now, opts)
	if err != nil {
		return nil, describeParseError(err)
	}
	out.TimeSpec = res.TimeSpec
	out.Description = res.Description
	out.Repeat = res.Repeat
	out.Datetime = res.Datetime.In(opts.Location).Format(time.RFC3339)

	if res.IsRecurring() {
		if out.Interval, err = recurrence.ToSchedulerInterval(res.Repeat); err != nil {
			return nil, err
		}
		next, err := recurrence.NextOccurrence(res.Datetime, res.Repeat, opts.Location)
		if err != nil {
			return nil, err
		}
		out.Next = next.In(opts.Location).Format(time.RFC3339)
	}
	return out, nil
}

// describeParseError keeps the sentinel and adds the chat text.
func describeParseError(err error) error {
	var perr *timeparse.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("%w (%s)", err, perr.UserMessage())
	}
	return err
}

func init() {
	parseCmd.Flags().StringVar(&parseNow, "now", "", "reference time, YYYY-MM-DD HH:MM (default: current time)")
	parseCmd.Flags().StringVar(&parseTZ, "tz", constants.DefaultTimezone, "IANA timezone")
	parseCmd.Flags().StringVar(&parseMorning, "morning", constants.DefaultMorningTime, "time of \"утром\"")
	parseCmd.Flags().StringVar(&parseEvening, "evening", constants.DefaultEveningTime, "time of \"вечером\"")
	parseCmd.Flags().BoolVar(&parseWhen, "when", false, "parse a postpone delay instead of a reminder")
}
