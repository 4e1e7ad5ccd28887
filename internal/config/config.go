package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return &cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errors []error

	// Проверка Telegram
	if c.Telegram.Token == "" {
		errors = append(errors, fmt.Errorf("telegram.token is required"))
	} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
		errors = append(errors, err)
	}
	errors = append(errors, validateAllowedUsers(c.Telegram.AllowedUsers)...)
	if c.Telegram.RateLimitPerSecond < 0 {
		errors = append(errors, fmt.Errorf("telegram.rate_limit_per_second must be >= 0"))
	}

	// Проверка хранилища
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
		if err := validatePath(c.Storage.Path, "storage.path"); err != nil {
			errors = append(errors, err)
		}
	case "memory":
	default:
		errors = append(errors, fmt.Errorf("invalid storage.driver: %s (expected: sqlite, memory)", c.Storage.Driver))
	}

	// Проверка планировщика
	if err := validatePath(c.Scheduler.JobsPath, "scheduler.jobs_path"); err != nil {
		errors = append(errors, err)
	}
	if c.Scheduler.Workers < 1 {
		errors = append(errors, fmt.Errorf("scheduler.workers must be >= 1"))
	}

	// Проверка пользовательских настроек по умолчанию
	if _, err := time.LoadLocation(c.Defaults.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("invalid defaults.timezone: %s", c.Defaults.Timezone))
	}
	if err := validateClock(c.Defaults.MorningTime, "defaults.morning_time"); err != nil {
		errors = append(errors, err)
	}
	if err := validateClock(c.Defaults.EveningTime, "defaults.evening_time"); err != nil {
		errors = append(errors, err)
	}
	if c.Defaults.AutoPostponeMinutes < 1 {
		errors = append(errors, fmt.Errorf("defaults.auto_postpone_minutes must be >= 1"))
	}

	// Проверка logging config
	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, fmt.Errorf("metrics.listen_addr is required when metrics are enabled"))
	}

	if c.Cleanup.IntervalMinutes < 1 {
		errors = append(errors, fmt.Errorf("cleanup.interval_minutes must be >= 1"))
	}
	if c.Cleanup.RetentionDays < 1 {
		errors = append(errors, fmt.Errorf("cleanup.retention_days must be >= 1"))
	}

	return errors
}

// validateAllowedUsers requires numeric Telegram user ids.
func validateAllowedUsers(ids []string) []error {
	var errs []error
	for i, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("telegram.allowed_users[%d]: %q is not a numeric user id", i, id))
		}
	}
	return errs
}

// Helper validation functions
func validateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram token cannot be empty")
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return newSecretFieldError("telegram.token", "invalid format (expected <bot_id>:<token>)", token)
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	// Check that bot ID contains only digits
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}

func validateClock(value, fieldName string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("invalid %s: %q (expected HH:MM)", fieldName, value)
	}
	return nil
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) error {
	// Telegram Token
	if strings.HasPrefix(c.Telegram.Token, "${") {
		c.Telegram.Token = expandEnv(c.Telegram.Token)
	}

	if strings.HasPrefix(c.Storage.Path, "${") {
		c.Storage.Path = expandEnv(c.Storage.Path)
	}
	c.Storage.Path = expandHome(c.Storage.Path)

	if strings.HasPrefix(c.Scheduler.JobsPath, "${") {
		c.Scheduler.JobsPath = expandEnv(c.Scheduler.JobsPath)
	}
	c.Scheduler.JobsPath = expandHome(c.Scheduler.JobsPath)

	if strings.HasPrefix(c.Defaults.Timezone, "${") {
		c.Defaults.Timezone = expandEnv(c.Defaults.Timezone)
	}

	if strings.HasPrefix(c.Logging.Output, "${") {
		c.Logging.Output = expandEnv(c.Logging.Output)
	}

	for i, id := range c.Telegram.AllowedUsers {
		c.Telegram.AllowedUsers[i] = expandEnv(id)
	}

	return nil
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	// Без значения по умолчанию
	return os.Getenv(s[2:end])
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
