package constants

// CommandStart is the command shown when the user opens the bot.
const CommandStart = "start"

// CommandHelp is the command that prints usage examples.
const CommandHelp = "help"

// CommandList is the command that lists active reminders.
const CommandList = "list"

// CommandDeleteAll is the command that removes every reminder of the user.
const CommandDeleteAll = "delete_all"

// CommandSettings is the command that shows the user's settings.
const CommandSettings = "settings"

// CommandTimezone sets the user's IANA timezone.
const CommandTimezone = "timezone"

// CommandMorning sets the clock time used for "утром".
const CommandMorning = "morning"

// CommandEvening sets the clock time used for "вечером".
const CommandEvening = "evening"

// CommandAutoPostpone sets the inertia re-prompt delay in minutes.
const CommandAutoPostpone = "autopostpone"

// BotCommand is an entry of the bot menu.
type BotCommand struct {
	Command     string
	Description string
}

// BotMenu is registered with Telegram on startup, in display order.
var BotMenu = []BotCommand{
	{Command: CommandList, Description: "Активные напоминания"},
	{Command: CommandSettings, Description: "Настройки"},
	{Command: CommandHelp, Description: "Справка"},
	{Command: CommandDeleteAll, Description: "Удалить все напоминания"},
}
