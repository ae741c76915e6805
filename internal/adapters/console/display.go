package console

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"tg-reviewer/internal/domain"
)

const (
	ruleWidth  = 60
	quoteWidth = 70
	timeLayout = "2006-01-02 15:04"
)

// Display печатает результаты работы для оператора.
type Display struct {
	e Emitter
}

// NewDisplay создаёт вывод поверх Emitter.
func NewDisplay(e Emitter) *Display {
	return &Display{e: e}
}

// AppHeader печатает заголовок утилиты.
func (d *Display) AppHeader() {
	d.e.Emit(ToneTitle, "🔍 Telegram 群組熱門訊息分析工具 🔍")
}

// Conversations печатает пронумерованный список бесед.
func (d *Display) Conversations(convs []domain.Conversation) {
	d.e.Emit(ToneTitle, "可分析的群組與頻道:")
	for i, c := range convs {
		d.e.Emit(ToneText, fmt.Sprintf("%3d. [%s] %s (%d)", i+1, c.Kind, c.Title, c.ID))
	}
}

// History печатает ранее выбранные беседы.
func (d *Display) History(refs []domain.ConversationRef) {
	d.e.Emit(ToneTitle, "上次選擇的群組:")
	for _, r := range refs {
		d.e.Emit(ToneText, fmt.Sprintf("  - [%s] %s (%d)", r.Type, r.Name, r.ID))
	}
}

// Processing сообщает о начале обработки беседы.
func (d *Display) Processing(index, total int, conv domain.Conversation) {
	d.e.Emit(ToneAccent, fmt.Sprintf("\n[%d/%d] 正在處理: %s", index, total, conv.Title))
}

// Empty сообщает, что в окне нет сообщений.
func (d *Display) Empty(name string) {
	d.e.Emit(ToneError, fmt.Sprintf("⚠️ 在 %s 中沒有找到任何訊息。", name))
}

// Analysis печатает сводку анализа и рейтинг по реакциям.
func (d *Display) Analysis(name string, res *domain.AnalysisResult, topK int) {
	if res == nil {
		d.e.Emit(ToneError, "❌ 沒有分析結果可供顯示")
		return
	}
	rule := strings.Repeat("=", ruleWidth)
	d.e.Emit(ToneText, rule)
	d.e.Emit(ToneTitle, fmt.Sprintf("📊 %s 訊息分析結果", name))
	d.e.Emit(ToneText, rule)
	d.e.Emit(ToneValue, fmt.Sprintf("📅 分析期間: %s 至 %s", res.PeriodStart.Format(timeLayout), res.PeriodEnd.Format(timeLayout)))
	d.e.Emit(ToneValue, fmt.Sprintf("📝 總訊息數: %d | 參與用戶數: %d", res.TotalMessages, res.UniqueUsers))
	d.e.Emit(ToneText, rule)

	d.e.Emit(ToneTitle, fmt.Sprintf("📱 所有表情符號反應總和最高的訊息 TOP %d", topK))
	d.e.Emit(ToneText, rule)
	if len(res.TopByReaction) == 0 {
		d.e.Emit(ToneError, "(沒有表情符號反應資料)")
	}
	for i, rec := range res.TopByReaction {
		d.item(i+1, rec)
	}
	d.e.Emit(ToneText, rule)
}

func (d *Display) item(rank int, rec domain.MessageRecord) {
	bar := strings.Repeat("━", 20)
	d.e.Emit(ToneAccent, fmt.Sprintf("%s 第 %d 名 %s", bar, rank, bar))
	for _, line := range QuoteLines(linkedText(rec)) {
		if line == "" {
			d.e.Emit(ToneText, "")
			continue
		}
		d.e.Emit(ToneQuote, "│ "+line)
	}

	sep := strings.Repeat("─", 50)
	d.e.Emit(ToneMuted, sep)
	detail := reactionDetail(rec.Reactions)
	if detail == "" {
		detail = "無"
	}
	d.e.Emit(ToneText, "  表情符號: "+detail)
	d.e.Emit(ToneText, fmt.Sprintf("  反應總數: %d", rec.TotalReactions()))
	d.e.Emit(ToneText, fmt.Sprintf("  回覆數: %d", rec.ReplyCount))
	if rec.ViewCount > 0 {
		d.e.Emit(ToneText, fmt.Sprintf("  瀏覽數: %d", rec.ViewCount))
	}
	d.e.Emit(ToneText, "  使用者: "+rec.SenderName())
	d.e.Emit(ToneText, "  發布時間: "+rec.Timestamp.UTC().Format(timeLayout))
	d.e.Emit(ToneMuted, sep)
}

// Replication печатает итог копирования в архив.
func (d *Display) Replication(rep domain.ReplicationReport, err error) {
	if err != nil {
		d.e.Emit(ToneError, fmt.Sprintf("❌ 複製熱門訊息失敗: %v", err))
		return
	}
	d.e.Emit(ToneSuccess, fmt.Sprintf("✅ 已複製 %d/%d 條熱門訊息到「%s」", rep.Succeeded, rep.Attempted, rep.Target.Name))
	if len(rep.FailedIDs) > 0 {
		d.e.Emit(ToneError, fmt.Sprintf("⚠️ 複製失敗的訊息: %v", rep.FailedIDs))
	}
}

// Finished печатает завершение всех бесед.
func (d *Display) Finished() {
	d.e.Emit(ToneSuccess, "\n✅ 所有群組分析完成！")
}

// linkedText разворачивает скрытые ссылки в «текст (url)».
func linkedText(rec domain.MessageRecord) string {
	units := utf16.Encode([]rune(rec.Text))
	inserts := make(map[int][]string)
	for _, e := range rec.Entities {
		end := e.Offset + e.Length
		if e.Kind != domain.EntityTextURL || e.Offset < 0 || e.Length <= 0 || end > len(units) {
			continue
		}
		inserts[end] = append(inserts[end], " ("+e.URL+")")
	}
	if len(inserts) == 0 {
		return rec.Text
	}
	ends := make([]int, 0, len(inserts))
	for end := range inserts {
		ends = append(ends, end)
	}
	sort.Ints(ends)

	var b strings.Builder
	from := 0
	for _, end := range ends {
		b.WriteString(string(utf16.Decode(units[from:end])))
		b.WriteString(strings.Join(inserts[end], ""))
		from = end
	}
	b.WriteString(string(utf16.Decode(units[from:])))
	return b.String()
}

// QuoteLines переносит текст по словам, не длиннее 70 символов в строке.
func QuoteLines(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range splitWords(raw) {
			if current != "" && utf8.RuneCountInString(current)+utf8.RuneCountInString(word) > quoteWidth {
				lines = append(lines, current)
				current = word
				continue
			}
			current += word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// splitWords режет строку на чередующиеся слова и пробельные промежутки.
func splitWords(line string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, r := range line {
		space := r == ' ' || r == '\t'
		if i > 0 && space != inSpace {
			parts = append(parts, line[start:i])
			start = i
		}
		inSpace = space
	}
	return append(parts, line[start:])
}

func reactionDetail(reactions []domain.Reaction) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		parts = append(parts, fmt.Sprintf("%s×%d", r.Emoji, r.Count))
	}
	return strings.Join(parts, " ")
}
