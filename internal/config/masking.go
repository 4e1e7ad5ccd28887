package config

import (
	"strings"
)

// maskSecret оставляет видимыми первые и последние 4 символа.
func maskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) < 8:
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// maskTelegramToken маскирует токен вида <bot_id>:<secret>; bot_id остаётся видимым.
func maskTelegramToken(token string) string {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok || strings.Contains(secret, ":") {
		return maskSecret(token)
	}
	return botID + ":" + maskSecret(secret)
}

// FieldError is a validation failure of one config key. Value is stored
// masked, so the error is safe to print or log after a reload.
type FieldError struct {
	Field  string
	Reason string
	Value  string
}

func newSecretFieldError(field, reason, secret string) *FieldError {
	return &FieldError{Field: field, Reason: reason, Value: maskSecret(secret)}
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return e.Field + ": " + e.Reason
	}
	return e.Field + ": " + e.Reason + " (value: " + e.Value + ")"
}
