// Package presenter formats data for Telegram display.
// Presenters turn domain results into user-facing texts and keyboards.
package presenter

// ══════════════════════════════════════════════════════════════════════════════
// REPLY KEYBOARD TYPES
// Library-agnostic keyboard types; the bot converts them to Bot API markup.
// ══════════════════════════════════════════════════════════════════════════════

// ReplyKeyboard is a persistent keyboard shown under the input field.
// Pressing a button sends its label as a plain text message.
type ReplyKeyboard struct {
	Rows   [][]string
	Resize bool
}

// AddRow adds a row of buttons.
func (k *ReplyKeyboard) AddRow(labels ...string) *ReplyKeyboard {
	k.Rows = append(k.Rows, labels)
	return k
}

// Reply is one outgoing message to the chat the input came from.
type Reply struct {
	// Text is the message text.
	Text string

	// HTML enables HTML parse mode with plain-text fallback.
	HTML bool

	// Keyboard replaces the reply keyboard when non-nil.
	Keyboard *ReplyKeyboard
}

// Text builds a plain reply.
func Text(text string) *Reply {
	return &Reply{Text: text}
}

// HTML builds an HTML reply.
func HTML(text string) *Reply {
	return &Reply{Text: text, HTML: true}
}

// WithMenu attaches the menu keyboard.
func (r *Reply) WithMenu(isAdmin bool) *Reply {
	r.Keyboard = MenuKeyboard(isAdmin)
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// MENU
// ══════════════════════════════════════════════════════════════════════════════

// Menu button labels. Routing matches the exact label text.
const (
	ButtonSchedule = "📅 Расписание"
	ButtonDuty     = "🧹 Дежурный"
	ButtonHomework = "📚 Домашка (dz_list)"
	ButtonHelp     = "❓ Help"

	ButtonAddChat       = "➕ Добавить чат"
	ButtonAddAdmin      = "➕ Добавить администратора"
	ButtonAddStudents   = "➕ Добавить учеников"
	ButtonEditSchedule  = "📝 Изменить расписание"
	ButtonTestBroadcast = "🧪 Тест в чат"
	ButtonAddJoke       = "😂 Добавить анекдот"
)

// MenuKeyboard builds the main menu. Admin rows are included only for admins.
func MenuKeyboard(isAdmin bool) *ReplyKeyboard {
	k := &ReplyKeyboard{Resize: true}
	k.AddRow(ButtonSchedule, ButtonDuty)
	k.AddRow(ButtonHomework)
	if isAdmin {
		k.AddRow(ButtonAddChat, ButtonAddAdmin)
		k.AddRow(ButtonAddStudents)
		k.AddRow(ButtonEditSchedule)
		k.AddRow(ButtonTestBroadcast)
		k.AddRow(ButtonAddJoke)
	}
	k.AddRow(ButtonHelp)
	return k
}
