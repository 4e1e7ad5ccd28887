package constants

import (
	"testing"
)

func TestCommandConstants(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "CommandStart", value: CommandStart},
		{name: "CommandHelp", value: CommandHelp},
		{name: "CommandList", value: CommandList},
		{name: "CommandDeleteAll", value: CommandDeleteAll},
		{name: "CommandSettings", value: CommandSettings},
		{name: "CommandTimezone", value: CommandTimezone},
		{name: "CommandMorning", value: CommandMorning},
		{name: "CommandEvening", value: CommandEvening},
		{name: "CommandAutoPostpone", value: CommandAutoPostpone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s should not be empty", tt.name)
			}
			// Check that command names use snake_case format
			for _, r := range tt.value {
				if r >= 'A' && r <= 'Z' {
					t.Errorf("%s should use snake_case format, got: %s", tt.name, tt.value)
					break
				}
			}
		})
	}
}

func TestPostponeLabelsCoverKeyboard(t *testing.T) {
	for _, row := range PostponeKeyboardRows {
		for _, key := range row {
			if PostponeLabels[key] == "" {
				t.Errorf("postpone keyword %q has no label", key)
			}
		}
	}
}

func TestBotMenuCommandsAreKnown(t *testing.T) {
	known := map[string]bool{
		CommandStart: true, CommandHelp: true, CommandList: true, CommandDeleteAll: true,
		CommandSettings: true, CommandTimezone: true, CommandMorning: true,
		CommandEvening: true, CommandAutoPostpone: true,
	}
	for _, c := range BotMenu {
		if !known[c.Command] || c.Description == "" {
			t.Errorf("bad menu entry %+v", c)
		}
	}
}
