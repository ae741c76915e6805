package analyze

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tg-reviewer/internal/domain"
)

// Service строит ранжированные срезы по набору сообщений.
type Service struct {
	log zerolog.Logger
}

// NewService создаёт агрегатор.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "analyze").Logger()}
}

// Analyze возвращает nil для пустого набора. topK <= 0 отключает усечение.
func (s *Service) Analyze(records []domain.MessageRecord, topK int) *domain.AnalysisResult {
	if len(records) == 0 {
		s.log.Warn().Msg("analyze: нет сообщений для анализа")
		return nil
	}
	s.log.Info().Int("messages", len(records)).Int("top", topK).Msg("analyze: начинаем анализ")
	res := Analyze(records, topK)
	s.log.Info().Int("users", res.UniqueUsers).Int("days", len(res.MessagesPerDay)).Msg("analyze: анализ завершён")
	return res
}

// Analyze зависит только от набора записей и topK.
// Все сортировки стабильные: при равенстве сохраняется порядок загрузки.
func Analyze(records []domain.MessageRecord, topK int) *domain.AnalysisResult {
	if len(records) == 0 {
		return nil
	}

	res := &domain.AnalysisResult{
		PeriodStart:   records[0].Timestamp.UTC(),
		PeriodEnd:     records[0].Timestamp.UTC(),
		TotalMessages: len(records),
	}
	for _, r := range records[1:] {
		ts := r.Timestamp.UTC()
		if ts.Before(res.PeriodStart) {
			res.PeriodStart = ts
		}
		if ts.After(res.PeriodEnd) {
			res.PeriodEnd = ts
		}
	}

	res.TopByReaction = topBy(records, topK, func(r domain.MessageRecord) int { return r.TotalReactions() })
	res.TopByReply = topBy(records, topK, func(r domain.MessageRecord) int { return r.ReplyCount })
	res.MessagesPerDay = messagesPerDay(records)
	res.UserActivity, res.UniqueUsers = userActivity(records, topK)
	res.EmojiStats = emojiStats(records, topK)
	return res
}

func topBy(records []domain.MessageRecord, topK int, key func(domain.MessageRecord) int) []domain.MessageRecord {
	sorted := make([]domain.MessageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	return truncate(sorted, topK)
}

func messagesPerDay(records []domain.MessageRecord) []domain.DayCount {
	index := make(map[time.Time]int)
	var days []domain.DayCount
	for _, r := range records {
		ts := r.Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, domain.DayCount{Day: day})
		}
		days[i].Count++
	}
	sort.SliceStable(days, func(i, j int) bool {
		if days[i].Count != days[j].Count {
			return days[i].Count > days[j].Count
		}
		return days[i].Day.Before(days[j].Day)
	})
	return days
}

// userActivity группирует по идентификатору автора, отображаемое имя используется только для вывода.
func userActivity(records []domain.MessageRecord, topK int) ([]domain.UserActivity, int) {
	index := make(map[int64]int)
	var users []domain.UserActivity
	for _, r := range records {
		var id int64
		if r.Sender != nil {
			id = r.Sender.ID
		}
		i, ok := index[id]
		if !ok {
			i = len(users)
			index[id] = i
			users = append(users, domain.UserActivity{SenderID: id, DisplayName: r.SenderName()})
		}
		users[i].Count++
	}
	unique := len(users)
	sort.SliceStable(users, func(i, j int) bool { return users[i].Count > users[j].Count })
	return truncate(users, topK), unique
}

func emojiStats(records []domain.MessageRecord, topK int) []domain.EmojiCount {
	index := make(map[string]int)
	var stats []domain.EmojiCount
	for _, r := range records {
		for _, reaction := range r.Reactions {
			i, ok := index[reaction.Emoji]
			if !ok {
				i = len(stats)
				index[reaction.Emoji] = i
				stats = append(stats, domain.EmojiCount{Emoji: reaction.Emoji})
			}
			stats[i].Count += reaction.Count
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return truncate(stats, topK)
}

func truncate[T any](items []T, topK int) []T {
	if topK > 0 && len(items) > topK {
		return items[:topK]
	}
	return items
}
