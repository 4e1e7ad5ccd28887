package constants

// Package messages contains all user-facing text constants of the bot.

// Command messages
const (
	// MsgStart is the greeting sent on /start.
	MsgStart = "👋 Привет! Я напомню о чём угодно.\n\n" +
		"Просто напиши, например:\n" +
		"• через 10 минут купить молоко\n" +
		"• завтра в 9:30 позвонить маме\n" +
		"• каждый месяц 15 числа зарплата\n\n" +
		"/list — активные напоминания\n/help — справка"

	// MsgHelp describes the supported grammar.
	MsgHelp = "📖 Как создать напоминание:\n\n" +
		"⏱ Через время: «через 15 минут», «через 2 часа и 30 минут», «через день»\n" +
		"🕘 В определённое время: «в 10:15», «в 1015», «завтра в 9», «сегодня вечером»\n" +
		"📅 В дату: «25 декабря в 12», «1 января 2027 в 10»\n" +
		"🔁 Повторы: «каждый час», «каждый день в 9», «каждое утро», «каждый вечер», " +
		"«каждые 30 минут», «каждый месяц 15 числа», «каждый год 3 марта»\n\n" +
		"Команды:\n/list — список\n/delete_all — удалить все\n/settings — настройки"

	// MsgErrorFormat is the prefix for formatting error messages.
	MsgErrorFormat = "Ошибка: %v"

	// MsgUnknownCommand is sent for an unsupported slash command.
	MsgUnknownCommand = "🤷 Неизвестная команда. /help"

	// MsgUnknownAction answers a callback this bot cannot handle.
	MsgUnknownAction = "❌ Кнопка устарела"

	// MsgInternalError is sent when a request fails for a non-user reason.
	MsgInternalError = "❌ Что-то пошло не так. Попробуйте ещё раз позже."
)

// Reminder messages
const (
	// MsgReminderCreated confirms a new one-off reminder. Args: time, description.
	MsgReminderCreated = "✅ Напоминание создано на %s\n📝 %s"

	// MsgRecurringCreated confirms a new recurring reminder. Args: repeat, first time, description.
	MsgRecurringCreated = "✅ Повторяющееся напоминание: %s\nПервое срабатывание: %s\n📝 %s"

	// MsgDuplicateReminder is sent when the same active reminder already exists.
	MsgDuplicateReminder = "⚠️ Такое напоминание уже есть."

	// MsgReminderNotification is the text of a delivered reminder.
	MsgReminderNotification = "🔔 Напоминание: %s"

	// MsgInertiaNotification is the text of a repeated nudge.
	MsgInertiaNotification = "🔔 Напоминаю ещё раз: %s"

	// MsgDoneConfirmation is the fixed answer after marking a reminder done.
	MsgDoneConfirmation = "✅ Напоминание выполнено"

	// MsgPostponed acknowledges a postponement. Args: new time.
	MsgPostponed = "⏰ Напоминание отложено до %s"

	// MsgPostponeAsk asks for a custom postpone delay.
	MsgPostponeAsk = "✍️ На сколько отложить? Например: «через 2 часа», «45 минут», «завтра в 9»"

	// MsgPostponeInvalid is sent when the postpone target cannot be used.
	MsgPostponeInvalid = "❌ Не удалось отложить: время должно быть в будущем."

	// MsgReminderDeleted confirms a single deletion.
	MsgReminderDeleted = "🗑 Напоминание удалено"

	// MsgAllDeleted confirms bulk deletion. Args: count.
	MsgAllDeleted = "🗑 Удалено напоминаний: %d"

	// MsgReminderNotFound is sent for an unknown or already removed reminder.
	MsgReminderNotFound = "❌ Напоминание не найдено"
)

// List messages
const (
	// MsgListHeader is the header of /list.
	MsgListHeader = "📋 Ваши напоминания:\n\n"

	// MsgListItem formats one entry. Args: index, time, description.
	MsgListItem = "%d. %s — %s\n"

	// MsgListItemRepeat formats a recurring entry. Args: index, time, description, repeat.
	MsgListItemRepeat = "%d. %s — %s (🔁 %s)\n"

	// MsgListEmpty is sent when the user has no active reminders.
	MsgListEmpty = "📭 Активных напоминаний нет."

	// MsgDateTimeLayout is the layout used for times shown to the user.
	MsgDateTimeLayout = "02.01.2006 15:04"
)

// Settings messages
const (
	// MsgSettings shows current settings. Args: timezone, morning, evening, auto-postpone minutes.
	MsgSettings = "⚙️ Настройки:\n\n" +
		"Часовой пояс: %s\nУтро: %s\nВечер: %s\nПовтор напоминания: каждые %d мин\n\n" +
		"Изменить: /timezone Europe/Moscow, /morning 08:00, /evening 18:00, /autopostpone 15"

	// MsgSettingsSaved confirms a settings change.
	MsgSettingsSaved = "✅ Настройки сохранены"

	MsgTimezoneInvalid     = "❌ Неизвестный часовой пояс. Пример: /timezone Europe/Moscow"
	MsgClockInvalid        = "❌ Укажите время в формате ЧЧ:ММ, например /%s 08:00"
	MsgAutoPostponeInvalid = "❌ Укажите число минут от 1 до 1440, например /autopostpone 15"
)

// Parser messages
const (
	MsgParseInvalidRecurrenceUnit = "❌ Такой повтор не поддерживается. Доступно: каждый час, каждый день, каждое утро, каждый вечер, каждые N минут, каждый месяц D числа, каждый год D месяца."
	MsgParseInvalidCalendarDate   = "❌ Такой даты не существует."
	MsgParseInvalidClockTime      = "❌ Неверное время: часы 0–23, минуты 0–59."
	MsgParseNonPositiveDuration   = "❌ Интервал должен быть больше нуля."
	MsgParseAmbiguous             = "❌ Слишком сложная формулировка: укажите либо «через …», либо «в …», но не оба сразу."
	MsgParsePastTime              = "❌ Это время уже прошло."
	MsgParseUnrecognized          = "❌ Не понял, когда напомнить. Попробуйте: «через 10 минут …» или «завтра в 9 …». /help"
	MsgParseEmptyDescription      = "❌ Не указано, о чём напомнить."
)

// Button captions
const (
	BtnDone           = "✅ Готово"
	BtnPostponeCustom = "✍️ Другое"
	BtnDelete         = "🗑 Удалить"
)

// Config messages
const (
	// MsgConfigLoadError is the error message when configuration loading fails.
	MsgConfigLoadError = "❌ Failed to load configuration: %v\n"

	// MsgConfigValidationError is the message when configuration validation fails.
	MsgConfigValidationError = "❌ Configuration validation failed:\n"

	// MsgConfigValid is the message when configuration is successfully loaded and validated.
	MsgConfigValid = "✅ Configuration loaded"

	// MsgConfigValidatePrefix is the prefix for configuration validation errors.
	MsgConfigValidatePrefix = "  - %v\n"
)

// Telegram messages
const (
	// MsgAccessDenied is sent to users outside of allowed_users.
	MsgAccessDenied = "⛔ Доступ запрещён"
)
