package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageRespectsLimit(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("a", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("б", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("c", 500))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	for i, part := range parts {
		if length := len([]rune(part)); length > MessageLimit {
			t.Fatalf("часть %d превышает предел: %d", i, length)
		}
	}
	if parts[0] != strings.Repeat("a", 3000) {
		t.Fatal("неожиданное содержимое первой части")
	}
	if !strings.HasPrefix(parts[1], "б") || !strings.HasSuffix(parts[1], strings.Repeat("c", 500)) {
		t.Fatal("вторая часть должна содержать оставшиеся блоки")
	}
}

func TestSplitTextWithoutNewlines(t *testing.T) {
	parts := SplitText(strings.Repeat("熱", 25), 10)
	if len(parts) != 3 {
		t.Fatalf("ожидали 3 части, получили %d", len(parts))
	}
	if len([]rune(parts[0])) != 10 || len([]rune(parts[2])) != 5 {
		t.Fatalf("неожиданные длины частей: %q", parts)
	}
}

func TestSplitMessageShortText(t *testing.T) {
	parts := SplitMessage("hello world")
	if len(parts) != 1 || parts[0] != "hello world" {
		t.Fatalf("неожиданный результат: %q", parts)
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("для пустого текста частей быть не должно, получили %d", len(parts))
	}
}
