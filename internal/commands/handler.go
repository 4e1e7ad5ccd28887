// Package commands routes incoming chat traffic: slash commands, plain text
// that becomes a reminder, and inline button callbacks. It knows nothing about
// the transport; the Telegram connector converts updates into Message and
// Callback values and implements Responder.
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/messages"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
	"github.com/scaramou4/rereminder-bot-sub000/internal/timeparse"
)

// pendingTTL bounds how long a "postpone custom" prompt waits for an answer.
const pendingTTL = 10 * time.Minute

// Message is an incoming text message.
type Message struct {
	UserID int64
	ChatID int64
	Text   string
}

// Callback is a pressed inline button.
type Callback struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	Data      string
}

// Responder delivers replies back to the chat.
type Responder interface {
	Send(ctx context.Context, chatID int64, text string, kb messages.Keyboard) (int, error)
	Answer(ctx context.Context, callbackID, text string) error
}

// Reminders is the lifecycle surface used by the router.
type Reminders interface {
	Create(ctx context.Context, userID, chatID int64, text string) (*reminder.Reminder, error)
	Get(ctx context.Context, id string) (*reminder.Reminder, error)
	List(ctx context.Context, userID int64) ([]reminder.Reminder, error)
	Delete(ctx context.Context, id string) (*reminder.Reminder, error)
	DeleteAll(ctx context.Context, userID int64) (int, error)
	Postpone(ctx context.Context, id, delaySpec string) (*reminder.Reminder, error)
	MarkDone(ctx context.Context, id string) (*reminder.Reminder, error)
}

// Settings reads and changes user preferences.
type Settings interface {
	Get(ctx context.Context, userID int64) settings.UserSettings
	SetTimezone(ctx context.Context, userID int64, tz string) (settings.UserSettings, error)
	SetMorning(ctx context.Context, userID int64, clock string) (settings.UserSettings, error)
	SetEvening(ctx context.Context, userID int64, clock string) (settings.UserSettings, error)
	SetAutoPostpone(ctx context.Context, userID int64, minutes int) (settings.UserSettings, error)
}

type pendingPostpone struct {
	reminderID string
	since      time.Time
}

// Handler routes messages and callbacks of all chats.
type Handler struct {
	reminders    Reminders
	settings     Settings
	out          Responder
	logger       *logger.Logger
	allowedUsers []string
	now          func() time.Time

	mu      sync.Mutex // guards allowedUsers and pending
	pending map[int64]pendingPostpone // chat id -> reminder awaiting a custom delay
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllowedUsers restricts the bot to the given user ids. Empty means everyone.
func WithAllowedUsers(ids []string) Option {
	return func(h *Handler) { h.allowedUsers = ids }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a router.
func NewHandler(reminders Reminders, prefs Settings, out Responder, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		reminders: reminders,
		settings:  prefs,
		out:       out,
		logger:    log.Component("commands"),
		now:       time.Now,
		pending:   make(map[int64]pendingPostpone),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetAllowedUsers replaces the allow-list at runtime.
func (h *Handler) SetAllowedUsers(ids []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allowedUsers = slices.Clone(ids)
}

func (h *Handler) isAllowed(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.allowedUsers) == 0 {
		return true
	}
	return slices.Contains(h.allowedUsers, strconv.FormatInt(userID, 10))
}

// HandleMessage processes a text message: a command, the answer to a custom
// postpone prompt, or a new reminder.
func (h *Handler) HandleMessage(ctx context.Context, msg Message) error {
	if !h.isAllowed(msg.UserID) {
		h.logger.WarnCtx(ctx, "message blocked - user not in whitelist",
			logger.Field{Key: "user_id", Value: msg.UserID})
		return h.reply(ctx, msg.ChatID, constants.MsgAccessDenied, nil)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		h.clearPending(msg.ChatID)
		cmd, args := splitCommand(text)
		return h.HandleCommand(ctx, msg, cmd, args)
	}

	if id, ok := h.takePending(msg.ChatID); ok {
		return h.postpone(ctx, msg, id, text)
	}
	return h.create(ctx, msg, text)
}

// HandleCommand runs a slash command without the leading slash.
func (h *Handler) HandleCommand(ctx context.Context, msg Message, cmd, args string) error {
	h.logger.DebugCtx(ctx, "command received",
		logger.Field{Key: "command", Value: cmd},
		logger.Field{Key: "user_id", Value: msg.UserID})

	switch cmd {
	case constants.CommandStart:
		return h.reply(ctx, msg.ChatID, constants.MsgStart, nil)
	case constants.CommandHelp:
		return h.reply(ctx, msg.ChatID, constants.MsgHelp, nil)
	case constants.CommandList:
		return h.list(ctx, msg)
	case constants.CommandDeleteAll:
		n, err := h.reminders.DeleteAll(ctx, msg.UserID)
		if err != nil {
			return h.replyError(ctx, msg.ChatID, "delete all reminders", err)
		}
		return h.reply(ctx, msg.ChatID, messages.FormatAllDeleted(n), nil)
	case constants.CommandSettings:
		return h.reply(ctx, msg.ChatID, messages.FormatSettings(h.settings.Get(ctx, msg.UserID)), nil)
	case constants.CommandTimezone:
		return h.updateSettings(ctx, msg, constants.MsgTimezoneInvalid, func() (settings.UserSettings, error) {
			return h.settings.SetTimezone(ctx, msg.UserID, args)
		})
	case constants.CommandMorning:
		return h.updateSettings(ctx, msg, fmt.Sprintf(constants.MsgClockInvalid, cmd), func() (settings.UserSettings, error) {
			return h.settings.SetMorning(ctx, msg.UserID, args)
		})
	case constants.CommandEvening:
		return h.updateSettings(ctx, msg, fmt.Sprintf(constants.MsgClockInvalid, cmd), func() (settings.UserSettings, error) {
			return h.settings.SetEvening(ctx, msg.UserID, args)
		})
	case constants.CommandAutoPostpone:
		return h.updateSettings(ctx, msg, constants.MsgAutoPostponeInvalid, func() (settings.UserSettings, error) {
			minutes, err := strconv.Atoi(args)
			if err != nil {
				return settings.UserSettings{}, fmt.Errorf("%w: %q is not a number", settings.ErrInvalid, args)
			}
			return h.settings.SetAutoPostpone(ctx, msg.UserID, minutes)
		})
	default:
		h.logger.WarnCtx(ctx, "unknown command",
			logger.Field{Key: "command", Value: cmd},
			logger.Field{Key: "user_id", Value: msg.UserID})
		return h.reply(ctx, msg.ChatID, constants.MsgUnknownCommand, nil)
	}
}

func (h *Handler) create(ctx context.Context, msg Message, text string) error {
	r, err := h.reminders.Create(ctx, msg.UserID, msg.ChatID, text)
	if err != nil {
		return h.replyError(ctx, msg.ChatID, "create reminder", err)
	}
	loc := h.settings.Get(ctx, msg.UserID).Location()
	return h.reply(ctx, msg.ChatID, messages.FormatCreated(r, loc), nil)
}

func (h *Handler) postpone(ctx context.Context, msg Message, id, spec string) error {
	if _, err := h.owned(ctx, id, msg.UserID); err != nil {
		return h.replyError(ctx, msg.ChatID, "postpone reminder", err)
	}
	r, err := h.reminders.Postpone(ctx, id, spec)
	if err != nil {
		var perr *timeparse.ParseError
		if errors.As(err, &perr) {
			// даём ещё одну попытку
			h.setPending(msg.ChatID, id)
		}
		return h.replyError(ctx, msg.ChatID, "postpone reminder", err)
	}
	loc := h.settings.Get(ctx, msg.UserID).Location()
	return h.reply(ctx, msg.ChatID, messages.FormatPostponed(r.Datetime, loc), nil)
}

func (h *Handler) list(ctx context.Context, msg Message) error {
	rs, err := h.reminders.List(ctx, msg.UserID)
	if err != nil {
		return h.replyError(ctx, msg.ChatID, "list reminders", err)
	}
	loc := h.settings.Get(ctx, msg.UserID).Location()
	return h.reply(ctx, msg.ChatID, messages.FormatList(rs, loc), messages.ListControls(rs))
}

func (h *Handler) updateSettings(ctx context.Context, msg Message, invalid string, apply func() (settings.UserSettings, error)) error {
	s, err := apply()
	if errors.Is(err, settings.ErrInvalid) {
		return h.reply(ctx, msg.ChatID, invalid, nil)
	}
	if err != nil {
		return h.replyError(ctx, msg.ChatID, "update settings", err)
	}
	return h.reply(ctx, msg.ChatID, constants.MsgSettingsSaved+"\n\n"+messages.FormatSettings(s), nil)
}

// owned loads a reminder and hides reminders of other users.
func (h *Handler) owned(ctx context.Context, id string, userID int64) (*reminder.Reminder, error) {
	r, err := h.reminders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, reminder.ErrNotFound
	}
	return r, nil
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, kb messages.Keyboard) error {
	if _, err := h.out.Send(ctx, chatID, text, kb); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// replyError shows err to the user. Errors without a user-facing meaning are
// logged in full and reported as an internal failure.
func (h *Handler) replyError(ctx context.Context, chatID int64, op string, err error) error {
	text := messages.UserError(err)
	if text == constants.MsgInternalError {
		h.logger.ErrorCtx(ctx, "failed to "+op, err, logger.Field{Key: "chat_id", Value: chatID})
	} else {
		h.logger.DebugCtx(ctx, op+" rejected",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "reason", Value: err.Error()})
	}
	return h.reply(ctx, chatID, text, nil)
}

func (h *Handler) setPending(chatID int64, reminderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[chatID] = pendingPostpone{reminderID: reminderID, since: h.now()}
}

func (h *Handler) takePending(chatID int64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pending[chatID]
	if !ok {
		return "", false
	}
	delete(h.pending, chatID)
	if h.now().Sub(p.since) > pendingTTL {
		return "", false
	}
	return p.reminderID, true
}

func (h *Handler) clearPending(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, chatID)
}

// splitCommand turns "/timezone@my_bot Europe/Moscow" into ("timezone", "Europe/Moscow").
func splitCommand(text string) (string, string) {
	text = strings.TrimPrefix(text, "/")
	cmd, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
