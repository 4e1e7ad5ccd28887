package telegram

import (
	"fmt"
	"strings"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// telegoLogger routes telego's internal logging into the application logger.
// Request URLs carry the bot token, so it is masked before logging.
type telegoLogger struct {
	logger *logger.Logger
	token  string
}

func newTelegoLogger(log *logger.Logger, token string) *telegoLogger {
	return &telegoLogger{logger: log.Component("telego"), token: token}
}

func (l *telegoLogger) Debugf(format string, args ...any) {
	l.logger.Debug(l.mask(fmt.Sprintf(format, args...)))
}

func (l *telegoLogger) Errorf(format string, args ...any) {
	l.logger.Warn(l.mask(fmt.Sprintf(format, args...)))
}

func (l *telegoLogger) mask(s string) string {
	if l.token == "" {
		return s
	}
	return strings.ReplaceAll(s, l.token, "BOT_TOKEN")
}
