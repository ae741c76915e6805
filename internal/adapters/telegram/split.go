package telegram

import "strings"

// MessageLimit — предел длины одного сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage режет текст по пределу Telegram.
func SplitMessage(text string) []string {
	return SplitText(text, MessageLimit)
}

// SplitText режет текст на части не длиннее limit символов.
// Разрез ставится на последнем переводе строки внутри части, иначе ровно по пределу.
func SplitText(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 {
		limit = MessageLimit
	}

	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := min(start+limit, len(runes))
		split := end
		if end < len(runes) {
			if nl := lastNewline(runes[start:end]); nl > 0 {
				split = start + nl
			}
		}

		if chunk := strings.Trim(string(runes[start:split]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}

		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}

// lastNewline возвращает позицию сразу после последнего '\n' или 0.
func lastNewline(runes []rune) int {
	for i := len(runes); i > 0; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return 0
}
