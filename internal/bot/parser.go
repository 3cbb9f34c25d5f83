package bot

import "strings"

// CommandParser разбирает команды вида "/cart" и "/give@shop_bot 42 100".
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд. Только "/": текст с "!" или "."
// в начале должен уходить в чат как обычное сообщение.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 || strings.HasPrefix(text, " ") {
		return "", nil, false
	}

	// В группах Telegram добавляет имя бота: /cart@shop_bot
	command, _, _ := strings.Cut(parts[0], "@")
	command = strings.ToLower(command)
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
