package repo

import (
	"encoding/json"
	"time"

	"tg-reviewer/internal/domain"
)

type reportDocument struct {
	RunID        string          `json:"run_id"`
	Conversation conversationDoc `json:"conversation"`
	Window       windowDoc       `json:"window"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Analysis     *analysisDoc    `json:"analysis,omitempty"`
	Replication  *replicationDoc `json:"replication,omitempty"`
	Error        string          `json:"replicate_error,omitempty"`
}

type conversationDoc struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	Type     string `json:"type,omitempty"`
}

type windowDoc struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type analysisDoc struct {
	PeriodStart    time.Time           `json:"period_start"`
	PeriodEnd      time.Time           `json:"period_end"`
	TotalMessages  int                 `json:"total_messages"`
	UniqueUsers    int                 `json:"unique_users"`
	TopByReaction  []messageDoc        `json:"top_by_reaction"`
	TopByReply     []messageDoc        `json:"top_by_reply"`
	MessagesPerDay map[string]int      `json:"messages_per_day"`
	UserActivity   []userActivityDoc   `json:"user_activity"`
	EmojiStats     []emojiDoc          `json:"emoji_stats"`
}

type messageDoc struct {
	ID        int64          `json:"id"`
	Date      time.Time      `json:"date"`
	Text      string         `json:"text"`
	HasMedia  bool           `json:"has_media"`
	Sender    string         `json:"sender"`
	Reactions map[string]int `json:"reactions,omitempty"`
	Total     int            `json:"total_reactions"`
	Replies   int            `json:"replies"`
	Views     int            `json:"views"`
	Forwards  int            `json:"forwards"`
}

type userActivityDoc struct {
	SenderID int64  `json:"sender_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

type emojiDoc struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

type replicationDoc struct {
	Target    string  `json:"target"`
	TargetID  int64   `json:"target_id"`
	Created   bool    `json:"created"`
	Attempted int     `json:"attempted"`
	Succeeded int     `json:"succeeded"`
	Fallbacks int     `json:"fallbacks"`
	FailedIDs []int64 `json:"failed_ids,omitempty"`
	Skipped   []int64 `json:"skipped,omitempty"`
}

// encodeReport сериализует отчёт в JSON для колонки report.
func encodeReport(r domain.RunReport) ([]byte, error) {
	doc := reportDocument{
		RunID: r.RunID,
		Conversation: conversationDoc{
			ID:       r.Source.ID,
			Title:    r.Source.Title,
			Username: r.Source.Username,
			Type:     string(r.Source.Kind),
		},
		Window:     windowDoc{Start: r.Window.Start, End: r.Window.End},
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.ReplicateErr,
	}
	if a := r.Analysis; a != nil {
		perDay := make(map[string]int, len(a.MessagesPerDay))
		for _, d := range a.MessagesPerDay {
			perDay[d.Day.Format("2006-01-02")] = d.Count
		}
		users := make([]userActivityDoc, 0, len(a.UserActivity))
		for _, u := range a.UserActivity {
			users = append(users, userActivityDoc{SenderID: u.SenderID, Name: u.DisplayName, Count: u.Count})
		}
		emoji := make([]emojiDoc, 0, len(a.EmojiStats))
		for _, e := range a.EmojiStats {
			emoji = append(emoji, emojiDoc{Emoji: e.Emoji, Count: e.Count})
		}
		doc.Analysis = &analysisDoc{
			PeriodStart:    a.PeriodStart,
			PeriodEnd:      a.PeriodEnd,
			TotalMessages:  a.TotalMessages,
			UniqueUsers:    a.UniqueUsers,
			TopByReaction:  messageDocs(a.TopByReaction),
			TopByReply:     messageDocs(a.TopByReply),
			MessagesPerDay: perDay,
			UserActivity:   users,
			EmojiStats:     emoji,
		}
	}
	if rep := r.Replication; rep != nil {
		doc.Replication = &replicationDoc{
			Target:    rep.Target.Name,
			TargetID:  rep.Target.ID,
			Created:   rep.Target.Created,
			Attempted: rep.Attempted,
			Succeeded: rep.Succeeded,
			Fallbacks: rep.Fallbacks,
			FailedIDs: rep.FailedIDs,
			Skipped:   rep.Skipped,
		}
	}
	return json.Marshal(doc)
}

func messageDocs(records []domain.MessageRecord) []messageDoc {
	out := make([]messageDoc, 0, len(records))
	for _, m := range records {
		var reactions map[string]int
		if len(m.Reactions) > 0 {
			reactions = make(map[string]int, len(m.Reactions))
			for _, r := range m.Reactions {
				reactions[r.Emoji] += r.Count
			}
		}
		out = append(out, messageDoc{
			ID:        m.ID,
			Date:      m.Timestamp,
			Text:      m.Text,
			HasMedia:  m.HasMedia,
			Sender:    m.SenderName(),
			Reactions: reactions,
			Total:     m.TotalReactions(),
			Replies:   m.ReplyCount,
			Views:     m.ViewCount,
			Forwards:  m.ForwardCount,
		})
	}
	return out
}
