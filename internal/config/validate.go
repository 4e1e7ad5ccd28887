package config

import (
	"fmt"
	"strings"
)

// String возвращает безопасное для логов представление конфигурации
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "telegram.token=%s ", maskTelegramToken(c.Telegram.Token))
	fmt.Fprintf(&b, "telegram.allowed_users=%d ", len(c.Telegram.AllowedUsers))
	fmt.Fprintf(&b, "storage=%s:%s ", c.Storage.Driver, c.Storage.Path)
	fmt.Fprintf(&b, "scheduler.jobs_path=%s scheduler.workers=%d ", c.Scheduler.JobsPath, c.Scheduler.Workers)
	fmt.Fprintf(&b, "defaults.timezone=%s defaults.auto_postpone=%dm ", c.Defaults.Timezone, c.Defaults.AutoPostponeMinutes)
	fmt.Fprintf(&b, "logging=%s/%s/%s", c.Logging.Level, c.Logging.Format, c.Logging.Output)
	return b.String()
}
