package repo

import (
	"encoding/json"
	"testing"
	"time"

	"tg-reviewer/internal/domain"
)

func TestEncodeReport(t *testing.T) {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	report := domain.RunReport{
		RunID:  "3f1c6a52-3d4f-4a55-9a43-1c9a7c1d2b10",
		Source: domain.Conversation{ID: 77, Title: "demo", Kind: domain.ConversationChannel},
		Analysis: &domain.AnalysisResult{
			TotalMessages:  3,
			UniqueUsers:    2,
			TopByReaction:  []domain.MessageRecord{{ID: 9, Text: "hi", Reactions: []domain.Reaction{{Emoji: "👍", Count: 2}, {Emoji: "👍", Count: 1}}}},
			MessagesPerDay: []domain.DayCount{{Day: day, Count: 3}},
			EmojiStats:     []domain.EmojiCount{{Emoji: "👍", Count: 3}},
		},
		Replication:  &domain.ReplicationReport{Target: domain.ArchiveTarget{Name: "TG分析-demo", ID: 5}, Attempted: 1, Succeeded: 1},
		ReplicateErr: "",
	}

	raw, err := encodeReport(report)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var doc struct {
		Conversation struct {
			Type string `json:"type"`
		} `json:"conversation"`
		Analysis struct {
			PerDay map[string]int `json:"messages_per_day"`
			Top    []struct {
				Sender    string         `json:"sender"`
				Reactions map[string]int `json:"reactions"`
				Total     int            `json:"total_reactions"`
			} `json:"top_by_reaction"`
			Emoji []struct {
				Emoji string `json:"emoji"`
				Count int    `json:"count"`
			} `json:"emoji_stats"`
		} `json:"analysis"`
		Replication struct {
			Target string `json:"target"`
		} `json:"replication"`
		Error *string `json:"replicate_error"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Conversation.Type != "頻道" {
		t.Fatalf("неожиданный тип беседы: %q", doc.Conversation.Type)
	}
	if doc.Analysis.PerDay["2024-05-02"] != 3 {
		t.Fatalf("неожиданная статистика по дням: %v", doc.Analysis.PerDay)
	}
	top := doc.Analysis.Top
	if len(top) != 1 || top[0].Reactions["👍"] != 3 || top[0].Total != 3 || top[0].Sender != domain.UnknownSenderLabel {
		t.Fatalf("неожиданный топ: %+v", top)
	}
	if len(doc.Analysis.Emoji) != 1 || doc.Analysis.Emoji[0].Count != 3 {
		t.Fatalf("неожиданная статистика эмодзи: %+v", doc.Analysis.Emoji)
	}
	if doc.Replication.Target != "TG分析-demo" {
		t.Fatalf("неожиданный архив: %q", doc.Replication.Target)
	}
	if doc.Error != nil {
		t.Fatal("пустая ошибка не должна попадать в отчёт")
	}
}
