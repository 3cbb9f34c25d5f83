package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortText(t *testing.T) {
	assert.Equal(t, []string{"привет"}, SplitMessage("привет", 0))
	assert.Equal(t, []string{""}, SplitMessage("", 0))
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := "aaaa\nbbbb\ncc"
	assert.Equal(t, []string{"aaaa\nbbbb", "cc"}, SplitMessage(text, 10))
	assert.Equal(t, []string{"aaaa", "bbbb", "cc"}, SplitMessage(text, 5))
}

func TestSplitMessageHardCut(t *testing.T) {
	assert.Equal(t, []string{"абв", "где", "ж"}, SplitMessage("абвгдеж", 3))
}

func TestSplitMessageCountsUTF16(t *testing.T) {
	// 🎮 занимает две кодовые единицы UTF-16
	parts := SplitMessage("🎮🎮🎮", 4)
	assert.Equal(t, []string{"🎮🎮", "🎮"}, parts)

	// Символ шире лимита всё равно отправляется целиком
	assert.Equal(t, []string{"🎮", "🎮"}, SplitMessage("🎮🎮", 1))
}

func TestSplitMessageTelegramLimit(t *testing.T) {
	line := strings.Repeat("я", 99) + "\n"
	text := strings.Repeat(line, 100) // 10 000 символов

	parts := SplitMessage(text, 0)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, messageLength(p), MaxMessageLength)
		assert.False(t, strings.HasPrefix(p, "\n"))
	}
	assert.Equal(t, text, strings.Join(parts, "\n"))
}
