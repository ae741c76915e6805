package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-reviewer/internal/adapters/telegram"
	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

// Sender покрывает ту часть BotAPI, что нужна для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot отправляет итоги прогонов в чат оператора.
type Bot struct {
	bot    Sender
	chatID int64
	log    zerolog.Logger
}

var _ domain.Notifier = (*Bot)(nil)

// NewBot создаёт уведомитель поверх Bot API.
func NewBot(bot Sender, chatID int64, log zerolog.Logger) *Bot {
	return &Bot{bot: bot, chatID: chatID, log: log.With().Str("component", "notify").Logger()}
}

// NotifyRun отправляет сводку прогона. Длинный текст режется на части.
func (b *Bot) NotifyRun(ctx context.Context, report domain.RunReport) error {
	for _, part := range telegram.SplitMessage(FormatRun(report)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(b.chatID, part)
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := b.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(b.chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("send run summary: %w", err)
		}
	}
	b.log.Debug().Str("run_id", report.RunID).Msg("notify: сводка отправлена")
	return nil
}

// FormatRun строит текст сводки одного прогона.
func FormatRun(r domain.RunReport) string {
	const layout = "2006-01-02 15:04"
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s\n", r.Source.Title)
	fmt.Fprintf(&sb, "📅 %s 至 %s\n", r.Window.Start.UTC().Format(layout), r.Window.End.UTC().Format(layout))
	if r.Analysis == nil {
		sb.WriteString("❌ 沒有可分析的訊息\n")
	} else {
		fmt.Fprintf(&sb, "📝 總訊息數: %d | 參與用戶數: %d\n", r.Analysis.TotalMessages, r.Analysis.UniqueUsers)
		for i, rec := range r.Analysis.TopByReaction {
			fmt.Fprintf(&sb, "%d. #%d 反應 %d 回覆 %d %s\n", i+1, rec.ID, rec.TotalReactions(), rec.ReplyCount, rec.SenderName())
		}
	}
	if rep := r.Replication; rep != nil {
		fmt.Fprintf(&sb, "✅ 複製 %d/%d → %s\n", rep.Succeeded, rep.Attempted, rep.Target.Name)
		if len(rep.FailedIDs) > 0 {
			fmt.Fprintf(&sb, "⚠️ 失敗: %v\n", rep.FailedIDs)
		}
	}
	if r.ReplicateErr != "" {
		fmt.Fprintf(&sb, "❌ %s\n", r.ReplicateErr)
	}
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "⏱ %.1f 秒\n", r.FinishedAt.Sub(r.StartedAt).Seconds())
	}
	return strings.TrimRight(sb.String(), "\n")
}
