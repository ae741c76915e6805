package replicate

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"tg-reviewer/internal/domain"
)

const (
	archivePrefix = "TG分析-"
	headerLayout  = "2006年01月02日 15:04:05"
	summaryLayout = "2006-01-02 15:04"
	unknownTime   = "未知時間"
	separator     = "-----------------------------------"
)

// ArchiveName возвращает название архивной беседы для источника.
func ArchiveName(sourceTitle string) string {
	return archivePrefix + sourceTitle
}

func archiveAbout(sourceTitle string) string {
	return fmt.Sprintf("自動創建的儲存群組，用於存儲「%s」的分析結果", sourceTitle)
}

// span описывает период для заголовка.
type span struct {
	first, last time.Time
	total       int
}

// days возвращает число календарных суток в периоде, включая оба конца.
func (s span) days(fallback int) int {
	if s.first.IsZero() || s.last.IsZero() {
		return fallback
	}
	return int(s.last.Sub(s.first)/(24*time.Hour)) + 1
}

// headerSpan выбирает источник периода: загруженные записи, затем период анализа, затем окно по умолчанию.
func headerSpan(now time.Time, windowDays, selected int, all []domain.MessageRecord, analysis *domain.AnalysisResult) span {
	if len(all) > 0 {
		s := span{first: all[0].Timestamp, last: all[0].Timestamp, total: len(all)}
		for _, r := range all[1:] {
			if r.Timestamp.Before(s.first) {
				s.first = r.Timestamp
			}
			if r.Timestamp.After(s.last) {
				s.last = r.Timestamp
			}
		}
		return s
	}
	if analysis != nil && !analysis.PeriodStart.IsZero() {
		start := analysis.PeriodStart.UTC()
		end := analysis.PeriodEnd.UTC()
		total := analysis.TotalMessages
		if total == 0 {
			total = selected
		}
		return span{
			first: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
			last:  time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC),
			total: total,
		}
	}
	last := now.UTC()
	return span{first: last.AddDate(0, 0, -windowDays), last: last, total: selected}
}

func formatHeader(source string, now time.Time, selected int, s span, windowDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b> 熱門訊息摘要\n\n", html.EscapeString(source))
	fmt.Fprintf(&b, "⏱ 分析時間: %s\n", now.Format(headerLayout))
	fmt.Fprintf(&b, "📈 共選出 %d 條熱門訊息\n", selected)
	fmt.Fprintf(&b, "📄 總訊息數: %d 則\n", s.total)
	fmt.Fprintf(&b, "📅 訊息時間範圍: %s～%s\n", formatDate(s.first), formatDate(s.last))
	fmt.Fprintf(&b, "⌛ 實際天數: %d 天\n\n", s.days(windowDays))
	b.WriteString(separator)
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return unknownTime
	}
	return t.Format(headerLayout)
}

func formatSummary(rank int, rec domain.MessageRecord, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💥 <b>第 %d 名排行</b>\n", rank)
	fmt.Fprintf(&b, "回覆數: %d\n", rec.ReplyCount)
	fmt.Fprintf(&b, "反應總數: %d\n", rec.TotalReactions())
	if detail := reactionDetail(rec.Reactions); detail != "" {
		fmt.Fprintf(&b, "表情符號: %s\n", html.EscapeString(detail))
	}
	fmt.Fprintf(&b, "使用者: %s\n", html.EscapeString(senderLine(rec.Sender)))
	if rec.Timestamp.IsZero() {
		fmt.Fprintf(&b, "發布時間: %s\n", unknownTime)
	} else {
		fmt.Fprintf(&b, "發布時間: %s\n", rec.Timestamp.Format(summaryLayout))
	}
	fmt.Fprintf(&b, `<a href="%s">點擊此處查看原始訊息</a>`, html.EscapeString(link))
	return b.String()
}

func reactionDetail(reactions []domain.Reaction) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		parts = append(parts, fmt.Sprintf("%s×%d", r.Emoji, r.Count))
	}
	return strings.Join(parts, " ")
}

func senderLine(sender *domain.SenderInfo) string {
	if sender == nil {
		return domain.UnknownSenderLabel
	}
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if name == "" {
		name = domain.UnknownSenderLabel
	}
	if sender.Username != "" {
		name += fmt.Sprintf(" (@%s)", sender.Username)
	}
	return fmt.Sprintf("%s（%d）", name, sender.ID)
}

func formatText(rec domain.MessageRecord) string {
	return "📝 <b>訊息內容</b>：\n" + renderHTML(rec.Text, rec.Entities)
}

var entityTags = map[domain.EntityKind]string{
	domain.EntityBold:       "b",
	domain.EntityItalic:     "i",
	domain.EntityUnderline:  "u",
	domain.EntityStrike:     "s",
	domain.EntitySpoiler:    "tg-spoiler",
	domain.EntityCode:       "code",
	domain.EntityPre:        "pre",
	domain.EntityBlockquote: "blockquote",
	domain.EntityTextURL:    "a",
}

// renderHTML экранирует текст и восстанавливает его оформление тегами.
// Смещения сущностей считаются в UTF-16. Пересекающиеся сущности обрезаются
// по границе внешней, чтобы теги оставались вложенными.
func renderHTML(text string, entities []domain.TextEntity) string {
	units := utf16.Encode([]rune(text))
	valid := make([]domain.TextEntity, 0, len(entities))
	for _, e := range entities {
		if _, ok := entityTags[e.Kind]; !ok || e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}
		valid = append(valid, e)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Offset != valid[j].Offset {
			return valid[i].Offset < valid[j].Offset
		}
		return valid[i].Length > valid[j].Length
	})

	type open struct {
		tag string
		end int
	}
	var (
		b     strings.Builder
		stack []open
		next  int
		from  int
	)
	flush := func(to int) {
		if to > from {
			b.WriteString(html.EscapeString(string(utf16.Decode(units[from:to]))))
		}
		from = to
	}
	for pos := 0; ; pos++ {
		if pos > 0 && pos < len(units) && isLowSurrogate(units[pos]) && isHighSurrogate(units[pos-1]) {
			// теги не ставим внутри суррогатной пары
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].end <= pos {
			flush(pos)
			fmt.Fprintf(&b, "</%s>", stack[len(stack)-1].tag)
			stack = stack[:len(stack)-1]
		}
		for next < len(valid) && valid[next].Offset <= pos {
			e := valid[next]
			next++
			end := e.Offset + e.Length
			if len(stack) > 0 && end > stack[len(stack)-1].end {
				end = stack[len(stack)-1].end
			}
			if end <= pos {
				continue
			}
			flush(pos)
			tag := entityTags[e.Kind]
			if e.Kind == domain.EntityTextURL {
				fmt.Fprintf(&b, `<a href="%s">`, html.EscapeString(e.URL))
			} else {
				fmt.Fprintf(&b, "<%s>", tag)
			}
			stack = append(stack, open{tag: tag, end: end})
		}
		if pos >= len(units) {
			break
		}
	}
	flush(len(units))
	return b.String()
}

func isHighSurrogate(u uint16) bool { return u >= 0xD800 && u < 0xDC00 }

func isLowSurrogate(u uint16) bool { return u >= 0xDC00 && u < 0xE000 }

func formatFooter(succeeded, total int) string {
	return fmt.Sprintf("✅ 共成功複製 %d/%d 條熱門訊息", succeeded, total)
}

// DeepLink строит ссылку на исходное сообщение.
// Для публичных бесед используется username, для приватных служебный путь /c/.
func DeepLink(conv domain.Conversation, messageID int64) string {
	if conv.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", conv.Username, messageID)
	}
	return fmt.Sprintf("https://t.me/c/%d/%d", conv.ID, messageID)
}
