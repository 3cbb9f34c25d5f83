// Package chat реализует диалог с языковой моделью.
// У каждого пользователя своя история сообщений ограниченной длины.
package chat

// Роли сообщений в истории.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSystemPrompt задаёт поведение модели, если CHAT_SYSTEM_PROMPT не указан.
const DefaultSystemPrompt = "Ты — умный и полезный AI-ассистент. " +
	"Отвечай обычным текстом. " +
	"НЕ используй LaTeX, Markdown-формулы, символы \\( \\), \\[ \\], $$."

// DefaultHistoryLimit — сколько сообщений хранится на пользователя.
const DefaultHistoryLimit = 100

// Message — одна запись истории.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// truncate оставляет последние limit сообщений.
// Системное сообщение не закрепляется и может выпасть из окна.
func truncate(history []Message, limit int) []Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
