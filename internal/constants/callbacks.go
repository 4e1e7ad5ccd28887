package constants

// Callback data prefixes. Data is encoded as <prefix>:<reminder_id>[:<arg>].
const (
	CallbackPostpone       = "postpone"
	CallbackPostponeCustom = "postpone_custom"
	CallbackDone           = "done"
	CallbackDelete         = "delete"

	// CallbackSeparator separates prefix, reminder id and argument.
	CallbackSeparator = ":"
)

// Postpone keywords accepted in callback data and by the lifecycle manager.
const (
	Postpone5m  = "5m"
	Postpone10m = "10m"
	Postpone15m = "15m"
	Postpone30m = "30m"
	Postpone1h  = "1h"
	Postpone3h  = "3h"
	Postpone1d  = "1d"
)

// PostponeLabels maps postpone keywords to button captions.
var PostponeLabels = map[string]string{
	Postpone5m:  "5 мин",
	Postpone10m: "10 мин",
	Postpone15m: "15 мин",
	Postpone30m: "30 мин",
	Postpone1h:  "1 час",
	Postpone3h:  "3 часа",
	Postpone1d:  "1 день",
}

// PostponeKeyboardRows is the layout of postpone buttons under a reminder.
var PostponeKeyboardRows = [][]string{
	{Postpone5m, Postpone15m, Postpone30m},
	{Postpone1h, Postpone3h, Postpone1d},
}
