// Package config provides configuration loading and validation for the reminder bot.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [telegram]: Bot token, access list, timeouts and send rate limit
//   - [storage]: Reminder persistence driver and database path
//   - [scheduler]: Jobs file and worker pool settings
//   - [defaults]: Default user settings (timezone, morning/evening, auto-postpone)
//   - [logging]: Logging level, format, and output
//   - [metrics]: Prometheus endpoint
//   - [cleanup]: Purging of completed reminders
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: token = "${TELEGRAM_BOT_TOKEN}"
package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram"`
	Storage   StorageConfig   `toml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Defaults  DefaultsConfig  `toml:"defaults"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
}

// TelegramConfig представляет конфигурацию Telegram бота
type TelegramConfig struct {
	Token                 string   `toml:"token"`
	AllowedUsers          []string `toml:"allowed_users"`
	SendTimeoutSeconds    int      `toml:"send_timeout_seconds"`
	AnswerTimeoutSeconds  int      `toml:"answer_timeout_seconds"`
	LongPollTimeout       int      `toml:"long_poll_timeout_seconds"`
	RateLimitPerSecond    float64  `toml:"rate_limit_per_second"`
	RateBurst             int      `toml:"rate_burst"`
	SendRetries           int      `toml:"send_retries"`
	SendRetryDelaySeconds int      `toml:"send_retry_delay_seconds"`
}

// StorageConfig представляет конфигурацию хранилища напоминаний
type StorageConfig struct {
	Driver             string `toml:"driver"` // sqlite | memory
	Path               string `toml:"path"`
	BusyTimeoutSeconds int    `toml:"busy_timeout_seconds"`
}

// SchedulerConfig представляет конфигурацию планировщика задач
type SchedulerConfig struct {
	JobsPath     string `toml:"jobs_path"`
	Workers      int    `toml:"workers"`
	QueueSize    int    `toml:"queue_size"`
	MaxRetries   int    `toml:"max_retries"`
	RetryDelayMS int    `toml:"retry_delay_ms"`
}

// DefaultsConfig представляет пользовательские настройки по умолчанию
type DefaultsConfig struct {
	Timezone            string `toml:"timezone"`
	MorningTime         string `toml:"morning_time"`
	EveningTime         string `toml:"evening_time"`
	AutoPostponeMinutes int    `toml:"auto_postpone_minutes"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig представляет конфигурацию prometheus endpoint
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
	Namespace  string `toml:"namespace"`
}

// CleanupConfig представляет конфигурацию очистки выполненных напоминаний
type CleanupConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
	RetentionDays   int  `toml:"retention_days"`
}

// Interval returns the purge period.
func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Retention returns how long completed reminders are kept.
func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SendTimeout returns the Telegram send timeout as a duration.
func (c TelegramConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// AnswerTimeout returns the callback answer timeout as a duration.
func (c TelegramConfig) AnswerTimeout() time.Duration {
	return time.Duration(c.AnswerTimeoutSeconds) * time.Second
}

// SendRetryDelay returns the base delay between send retries.
func (c TelegramConfig) SendRetryDelay() time.Duration {
	return time.Duration(c.SendRetryDelaySeconds) * time.Second
}

// RetryDelay returns the worker retry delay as a duration.
func (c SchedulerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// AutoPostpone returns the default inertia delay.
func (c DefaultsConfig) AutoPostpone() time.Duration {
	return time.Duration(c.AutoPostponeMinutes) * time.Minute
}
