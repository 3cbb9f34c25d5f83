// Package common — message.go режет длинные тексты под лимит Telegram.
package common

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxMessageLength — лимит длины сообщения Telegram (в кодовых единицах UTF-16).
const MaxMessageLength = 4096

// SplitMessage делит text на части не длиннее limit. Режет по последнему переводу
// строки в пределах лимита, а если его нет, то по границе символа.
// limit <= 0 означает MaxMessageLength.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var parts []string
	for messageLength(text) > limit {
		cut := prefixBytes(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl
		}
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

// messageLength считает длину так же, как Telegram: суррогатные пары за две единицы.
func messageLength(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// prefixBytes — длина в байтах самого длинного префикса, влезающего в limit.
// Хотя бы один символ берётся всегда.
func prefixBytes(s string, limit int) int {
	n := 0
	for i, r := range s {
		w := runeUnits(r)
		if n+w > limit {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return size
			}
			return i
		}
		n += w
	}
	return len(s)
}

func runeUnits(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}
