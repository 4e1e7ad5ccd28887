package config

import (
	"path/filepath"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
)

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}
	if c.Telegram.AnswerTimeoutSeconds == 0 {
		c.Telegram.AnswerTimeoutSeconds = 5
	}
	if c.Telegram.LongPollTimeout == 0 {
		c.Telegram.LongPollTimeout = 30
	}
	if c.Telegram.RateLimitPerSecond == 0 {
		c.Telegram.RateLimitPerSecond = 25
	}
	if c.Telegram.RateBurst == 0 {
		c.Telegram.RateBurst = 5
	}
	if c.Telegram.SendRetries == 0 {
		c.Telegram.SendRetries = 3
	}
	if c.Telegram.SendRetryDelaySeconds == 0 {
		c.Telegram.SendRetryDelaySeconds = 1
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(constants.DefaultDataDir, constants.DatabaseFilename)
	}
	if c.Storage.BusyTimeoutSeconds == 0 {
		c.Storage.BusyTimeoutSeconds = 5
	}

	if c.Scheduler.JobsPath == "" {
		c.Scheduler.JobsPath = filepath.Join(constants.DefaultDataDir, constants.JobsFilename)
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 4
	}
	if c.Scheduler.QueueSize == 0 {
		c.Scheduler.QueueSize = 100
	}
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = 2
	}
	if c.Scheduler.RetryDelayMS == 0 {
		c.Scheduler.RetryDelayMS = 500
	}

	if c.Defaults.Timezone == "" {
		c.Defaults.Timezone = constants.DefaultTimezone
	}
	if c.Defaults.MorningTime == "" {
		c.Defaults.MorningTime = constants.DefaultMorningTime
	}
	if c.Defaults.EveningTime == "" {
		c.Defaults.EveningTime = constants.DefaultEveningTime
	}
	if c.Defaults.AutoPostponeMinutes == 0 {
		c.Defaults.AutoPostponeMinutes = constants.DefaultAutoPostponeMinutes
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}

	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 360
	}
	if c.Cleanup.RetentionDays == 0 {
		c.Cleanup.RetentionDays = 30
	}
}

// Default возвращает конфигурацию только из значений по умолчанию
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	_ = expandEnvVars(cfg)
	return cfg
}
