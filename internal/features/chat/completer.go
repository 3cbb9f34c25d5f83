// Package chat — completer.go: обращение к API chat completions.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer получает ответ модели на всю историю диалога.
type Completer interface {
	Complete(ctx context.Context, history []Message) (string, error)
}

// ErrNoChoices — API вернул ответ без вариантов.
var ErrNoChoices = errors.New("модель не вернула ответ")

// OpenAICompleter ходит в OpenAI (или совместимый API по OPENAI_BASE_URL).
// Повторов нет: ошибка сразу возвращается вызывающему.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAICompleter создаёт клиента. Пустой baseURL означает адрес OpenAI по умолчанию.
func NewOpenAICompleter(apiKey, baseURL, model string, temperature float64) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}
}

var _ Completer = (*OpenAICompleter)(nil)

func (c *OpenAICompleter) Complete(ctx context.Context, history []Message) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toOpenAIMessages(history),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к %s: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(history []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
