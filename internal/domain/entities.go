package domain

import (
	"fmt"
	"time"
)

// ConversationKind различает группы и каналы.
type ConversationKind string

const (
	// ConversationGroup: группа или супергруппа.
	ConversationGroup ConversationKind = "群組"
	// ConversationChannel: широковещательный канал.
	ConversationChannel ConversationKind = "頻道"
)

// Conversation описывает беседу-источник или беседу-архив.
type Conversation struct {
	ID       int64
	Title    string
	Username string
	Kind     ConversationKind
	// Channel отмечает супергруппы и каналы: только в них создаётся архив.
	Channel bool
	// Handle хранит представление беседы на стороне шлюза (например, tg.InputPeerClass).
	Handle any
}

// SenderInfo описывает автора сообщения.
type SenderInfo struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName строит отображаемое имя автора.
func (s SenderInfo) DisplayName() string {
	if s.FirstName == "" {
		return UnknownSenderName(s.ID)
	}
	name := s.FirstName
	if s.LastName != "" {
		name += " " + s.LastName
	}
	handle := s.Username
	if handle == "" {
		handle = fmt.Sprintf("%d", s.ID)
	}
	return fmt.Sprintf("%s（%s）", name, handle)
}

// UnknownSenderName возвращает заглушку для автора, которого не удалось определить.
func UnknownSenderName(id int64) string {
	return fmt.Sprintf("未知用戶（%d）", id)
}

// Reaction — пара (эмодзи, количество) в порядке провайдера.
type Reaction struct {
	Emoji string
	Count int
}

// MessageRecord — нормализованный снимок сообщения источника.
type MessageRecord struct {
	ID           int64
	Timestamp    time.Time
	Text         string
	Entities     []TextEntity
	HasMedia     bool
	Sender       *SenderInfo
	Reactions    []Reaction
	ReplyCount   int
	ViewCount    int
	ForwardCount int
}

// TotalReactions суммирует реакции. Значение всегда выводится из Reactions.
func (m MessageRecord) TotalReactions() int {
	total := 0
	for _, r := range m.Reactions {
		total += r.Count
	}
	return total
}

// SenderName возвращает отображаемое имя автора или общую заглушку.
func (m MessageRecord) SenderName() string {
	if m.Sender == nil {
		return UnknownSenderLabel
	}
	return m.Sender.DisplayName()
}

// UnknownSenderLabel используется для сообщений без автора.
const UnknownSenderLabel = "未知用戶"

// DayCount хранит количество сообщений за календарный день (UTC).
type DayCount struct {
	Day   time.Time
	Count int
}

// UserActivity хранит активность одного автора.
type UserActivity struct {
	SenderID    int64
	DisplayName string
	Count       int
}

// EmojiCount хранит суммарное количество одной реакции.
type EmojiCount struct {
	Emoji string
	Count int
}

// AnalysisResult — производный результат анализа, пересчитывается на каждом запуске.
type AnalysisResult struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	TotalMessages  int
	UniqueUsers    int
	TopByReaction  []MessageRecord
	TopByReply     []MessageRecord
	MessagesPerDay []DayCount
	UserActivity   []UserActivity
	EmojiStats     []EmojiCount
}

// ArchiveTarget описывает беседу, куда реплицируются отобранные сообщения.
type ArchiveTarget struct {
	Name         string
	ID           int64
	Conversation Conversation
	Created      bool
}

// SelectedItem передаётся от агрегатора репликатору.
type SelectedItem struct {
	ID   int64
	Text string
}

// SelectItems превращает ранжированный список в позиции для репликации.
func SelectItems(records []MessageRecord) []SelectedItem {
	items := make([]SelectedItem, 0, len(records))
	for _, r := range records {
		items = append(items, SelectedItem{ID: r.ID, Text: r.Text})
	}
	return items
}

// ReplicationReport описывает итог одного прогона репликации.
type ReplicationReport struct {
	Target    ArchiveTarget
	Attempted int
	Succeeded int
	Skipped   []int64
	FailedIDs []int64
	Fallbacks int
}

// ConversationRef является записью истории выбранных бесед.
type ConversationRef struct {
	ID   int64            `json:"id"`
	Name string           `json:"name"`
	Type ConversationKind `json:"type"`
}
