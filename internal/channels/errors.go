// Package channels holds transport-level helpers shared by messaging channels.
package channels

import (
	"errors"
	"fmt"
	"strings"
	"time"

	telegoapi "github.com/mymmrac/telego/telegoapi"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// ErrorDetails - универсальный интерфейс для детализации ошибок каналов
type ErrorDetails interface {
	// Error возвращает текстовое описание ошибки
	Error() string

	// IsRetryable указывает, можно ли повторить отправку
	IsRetryable() bool

	// RetryAfter возвращает задержку перед повторной отправкой
	RetryAfter() time.Duration

	// LogFields возвращает поля для структурированного логирования
	LogFields() []logger.Field
}

// TelegramErrorDetails - детализация ошибки Telegram API
type TelegramErrorDetails struct {
	ErrorCode     int       // Код ошибки (400, 429, 403 и т.д.)
	Description   string    // Описание ошибки от Telegram
	RetryAfterSec int       // Задержка в секундах (для rate limiting)
	ChatID        int64     // ID чата
	Timestamp     time.Time // Время ошибки

	err error
}

// ParseTelegramError extracts Telegram API details from err. The second
// result is false for errors that did not come from the Bot API (network,
// timeouts, encoding).
func ParseTelegramError(err error, chatID int64) (*TelegramErrorDetails, bool) {
	var telErr *telegoapi.Error
	if !errors.As(err, &telErr) {
		return nil, false
	}

	details := &TelegramErrorDetails{
		ErrorCode:   telErr.ErrorCode,
		Description: telErr.Description,
		ChatID:      chatID,
		Timestamp:   time.Now(),
		err:         err,
	}
	if telErr.Parameters != nil {
		details.RetryAfterSec = telErr.Parameters.RetryAfter
	}
	return details, true
}

// Error возвращает текстовое описание ошибки
func (d *TelegramErrorDetails) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", d.ErrorCode, d.Description)
}

// Unwrap returns the original error.
func (d *TelegramErrorDetails) Unwrap() error {
	return d.err
}

// IsRetryable проверяет, можно ли повторить отправку
func (d *TelegramErrorDetails) IsRetryable() bool {
	// Rate limiting (429) и временные ошибки можно повторить
	return d.ErrorCode == 429 || (d.ErrorCode >= 500 && d.ErrorCode < 600)
}

// RetryAfter возвращает задержку перед повторной отправкой
func (d *TelegramErrorDetails) RetryAfter() time.Duration {
	if d.RetryAfterSec > 0 {
		return time.Duration(d.RetryAfterSec) * time.Second
	}
	if d.ErrorCode >= 500 && d.ErrorCode < 600 {
		return 5 * time.Second
	}
	return 0
}

// IsNotModified reports an edit that would leave the message unchanged.
func (d *TelegramErrorDetails) IsNotModified() bool {
	return d.ErrorCode == 400 && strings.Contains(d.Description, "message is not modified")
}

// IsMessageGone reports an edit of a message that was deleted or is too old.
func (d *TelegramErrorDetails) IsMessageGone() bool {
	if d.ErrorCode != 400 {
		return false
	}
	return strings.Contains(d.Description, "message to edit not found") ||
		strings.Contains(d.Description, "message can't be edited")
}

// LogFields возвращает поля для структурированного логирования
func (d *TelegramErrorDetails) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "error_code", Value: d.ErrorCode},
		{Key: "error_description", Value: d.Description},
		{Key: "retry_after", Value: d.RetryAfterSec},
		{Key: "chat_id", Value: d.ChatID},
	}
}
