package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"tg-reviewer/internal/domain"
)

func TestPlainEmitterHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, false)
	e.Emit(ToneTitle, "標題")
	e.Emit(ToneError, "錯誤")
	if buf.String() != "標題\n錯誤\n" {
		t.Fatalf("неожиданный вывод: %q", buf.String())
	}
}

func TestProgressLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(NewEmitter(&buf, false), "")
	p.Progress(10)
	p.Done(25, 1500*time.Millisecond)
	want := "已取得 10 則訊息...\n已取得 25 則訊息 (1.5 秒)\n"
	if buf.String() != want {
		t.Fatalf("ожидали %q, получили %q", want, buf.String())
	}
}

func TestQuoteLines(t *testing.T) {
	long := strings.Repeat("word ", 20)
	lines := QuoteLines("看這裡 [連結](https://example.com)\n\n" + long)
	if lines[0] != "看這裡 [連結](https://example.com)" {
		t.Fatalf("текст должен выводиться как есть: %q", lines[0])
	}
	if lines[1] != "" {
		t.Fatalf("пустая строка должна сохраниться: %q", lines[1])
	}
	for _, l := range lines[2:] {
		if n := len([]rune(l)); n > 70 {
			t.Fatalf("строка длиннее 70 символов (%d): %q", n, l)
		}
	}
	if len(lines) < 4 {
		t.Fatalf("длинная строка должна переноситься: %q", lines)
	}
}

func TestLinkedText(t *testing.T) {
	rec := domain.MessageRecord{
		Text: "🔥 read the report here",
		Entities: []domain.TextEntity{
			{Kind: domain.EntityBold, Offset: 0, Length: 2},
			{Kind: domain.EntityTextURL, Offset: 19, Length: 4, URL: "https://example.com/report"},
		},
	}
	if got := linkedText(rec); got != "🔥 read the report here (https://example.com/report)" {
		t.Fatalf("ссылка не развернута: %q", got)
	}
	if got := linkedText(domain.MessageRecord{Text: "plain"}); got != "plain" {
		t.Fatalf("текст без ссылок не меняется: %q", got)
	}
}

func TestAnalysisDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(NewEmitter(&buf, false))
	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	res := &domain.AnalysisResult{
		PeriodStart:   ts,
		PeriodEnd:     ts.Add(48 * time.Hour),
		TotalMessages: 12,
		UniqueUsers:   4,
		TopByReaction: []domain.MessageRecord{{
			ID:         7,
			Timestamp:  ts,
			Text:       "hello",
			Sender:     &domain.SenderInfo{ID: 1, FirstName: "Ann", Username: "ann"},
			Reactions:  []domain.Reaction{{Emoji: "👍", Count: 3}, {Emoji: "🔥", Count: 1}},
			ReplyCount: 2,
		}},
	}
	d.Analysis("Go 群", res, 5)
	out := buf.String()
	for _, want := range []string{
		"📊 Go 群 訊息分析結果",
		"📅 分析期間: 2024-03-01 08:30 至 2024-03-03 08:30",
		"📝 總訊息數: 12 | 參與用戶數: 4",
		"TOP 5",
		"第 1 名",
		"│ hello",
		"表情符號: 👍×3 🔥×1",
		"反應總數: 4",
		"使用者: Ann（ann）",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("в выводе нет %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "瀏覽數") {
		t.Fatal("нулевые просмотры не выводятся")
	}
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		in   string
		want []int
		ok   bool
	}{
		{"1,3", []int{0, 2}, true},
		{"2 2，1", []int{1, 0}, true},
		{"all", []int{0, 1, 2}, true},
		{"4", nil, false},
		{"x", nil, false},
		{"", nil, false},
	}
	for _, c := range cases {
		got, err := ParseSelection(c.in, 3)
		if (err == nil) != c.ok {
			t.Fatalf("%q: неожиданная ошибка %v", c.in, err)
		}
		if !c.ok {
			continue
		}
		if len(got) != len(c.want) {
			t.Fatalf("%q: ожидали %v, получили %v", c.in, c.want, got)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q: ожидали %v, получили %v", c.in, c.want, got)
			}
		}
	}
}

func TestConfirmRepeatsUntilValid(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("maybe\n是\n"), NewEmitter(&out, false))
	yes, err := p.Confirm(context.Background(), "是否要使用上次選擇的群組進行分析？")
	if err != nil || !yes {
		t.Fatalf("ожидали согласие, получили %v %v", yes, err)
	}
	if !strings.Contains(out.String(), "請輸入 y 或 n") {
		t.Fatal("ожидали повторный вопрос")
	}

	p = NewPrompter(strings.NewReader(""), NewEmitter(&out, false))
	if _, err := p.Confirm(context.Background(), "?"); !errors.Is(err, io.EOF) {
		t.Fatalf("ожидали io.EOF, получили %v", err)
	}
}
