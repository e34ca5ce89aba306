package bot

import (
	"strings"

	"housebot/internal/i18n"
)

// Command is a user action resolved from a keyboard label.
type Command int

const (
	CommandUnknown Command = iota
	CommandStart
	CommandHelp
	CommandCancel
	CommandAddMe
	CommandRemoveMe
	CommandAddResident
	CommandRemoveResident
	CommandAddNumber
	CommandRemoveNumber
	CommandListResidents
	CommandListNumbers
	CommandShowBuilding
	CommandShowFloor
	CommandFindApartment
)

var commandKeys = map[Command]string{
	CommandStart:          "start",
	CommandHelp:           "help",
	CommandCancel:         "cancel",
	CommandAddMe:          "addMe",
	CommandRemoveMe:       "removeMe",
	CommandAddResident:    "addResident",
	CommandRemoveResident: "removeResident",
	CommandAddNumber:      "addNumber",
	CommandRemoveNumber:   "removeNumber",
	CommandListResidents:  "listResidents",
	CommandListNumbers:    "listNumbers",
	CommandShowBuilding:   "showBuilding",
	CommandShowFloor:      "showFloor",
	CommandFindApartment:  "findApartment",
}

// Key is the locale table key of the command label.
func (c Command) Key() string {
	if k, ok := commandKeys[c]; ok {
		return k
	}
	return "unknown"
}

func (c Command) String() string { return c.Key() }

// Restricted reports whether the command changes personal data and must run
// in a private chat.
func (c Command) Restricted() bool {
	switch c {
	case CommandAddMe, CommandRemoveMe, CommandAddResident, CommandRemoveResident, CommandAddNumber, CommandRemoveNumber:
		return true
	}
	return false
}

// Commands resolves message text to commands for one locale.
type Commands struct {
	locale  *i18n.Locale
	byLabel map[string]Command
}

// ResolveCommands builds the label table. The /start and /help slash
// commands are recognized in every locale.
func ResolveCommands(l *i18n.Locale) *Commands {
	c := &Commands{locale: l, byLabel: make(map[string]Command, len(commandKeys)+2)}
	for cmd, key := range commandKeys {
		if label := l.Label(key); label != "" {
			c.byLabel[label] = cmd
		}
	}
	c.byLabel["/start"] = CommandStart
	c.byLabel["/help"] = CommandHelp
	return c
}

// Match returns the command whose label equals text exactly. Slash commands
// addressed to a bot (/start@name) match their plain form.
func (c *Commands) Match(text string) Command {
	if cmd, ok := c.byLabel[text]; ok {
		return cmd
	}
	if strings.HasPrefix(text, "/") {
		if at := strings.IndexByte(text, '@'); at > 0 {
			return c.byLabel[text[:at]]
		}
	}
	return CommandUnknown
}

// Label is the localized text of cmd.
func (c *Commands) Label(cmd Command) string { return c.locale.Label(cmd.Key()) }

// MainKeyboard is the reply keyboard shown outside dialogs.
func (c *Commands) MainKeyboard() *Markup {
	rows := [][]Command{
		{CommandAddMe, CommandRemoveMe},
		{CommandAddResident, CommandRemoveResident},
		{CommandAddNumber, CommandRemoveNumber},
		{CommandListResidents, CommandListNumbers},
		{CommandShowBuilding, CommandShowFloor},
		{CommandFindApartment},
	}
	m := &Markup{Keyboard: make([][]string, 0, len(rows))}
	for _, row := range rows {
		labels := make([]string, 0, len(row))
		for _, cmd := range row {
			labels = append(labels, c.Label(cmd))
		}
		m.Keyboard = append(m.Keyboard, labels)
	}
	return m
}

// CancelKeyboard is the reply keyboard shown while a dialog step is pending.
func (c *Commands) CancelKeyboard() *Markup {
	return &Markup{Keyboard: [][]string{{c.Label(CommandCancel)}}}
}
