package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReactionKind описывает тип реакции, которую вернул провайдер.
type ReactionKind int

const (
	ReactionUnknown ReactionKind = iota
	ReactionEmoji
	ReactionCustomEmoji
)

// RawReaction — реакция в том виде, в котором её отдал шлюз.
type RawReaction struct {
	Kind          ReactionKind
	Emoticon      string
	CustomEmojiID int64
	Count         int
}

// Token возвращает метку реакции. Нестандартные реакции получают синтетическую метку.
func (r RawReaction) Token() string {
	switch {
	case r.Kind == ReactionEmoji && r.Emoticon != "":
		return r.Emoticon
	case r.Kind == ReactionCustomEmoji:
		return fmt.Sprintf("自訂表情:%d", r.CustomEmojiID)
	default:
		return "未知表情符號"
	}
}

// AttachmentKind различает типы вложений.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
	AttachmentOther    AttachmentKind = "other"
)

// Attachment описывает вложение сообщения.
type Attachment struct {
	Kind     AttachmentKind
	FileName string
	MimeType string
	Size     int64
	// Location хранит адрес файла на стороне шлюза для скачивания.
	Location any
}

// EntityKind — тип разметки фрагмента текста.
type EntityKind string

const (
	EntityBold       EntityKind = "bold"
	EntityItalic     EntityKind = "italic"
	EntityUnderline  EntityKind = "underline"
	EntityStrike     EntityKind = "strike"
	EntitySpoiler    EntityKind = "spoiler"
	EntityCode       EntityKind = "code"
	EntityPre        EntityKind = "pre"
	EntityBlockquote EntityKind = "blockquote"
	EntityTextURL    EntityKind = "text_url"
)

// TextEntity — разметка фрагмента текста.
// Offset и Length считаются в UTF-16 единицах, как в Telegram.
type TextEntity struct {
	Kind   EntityKind
	Offset int
	Length int
	URL    string
}

// RawMessage — сообщение, полученное от шлюза, до нормализации.
type RawMessage struct {
	ID         int64
	Date       time.Time
	Text       string
	Entities   []TextEntity
	SenderID   int64
	Attachment *Attachment
	Reactions  []RawReaction
	Replies    int
	Views      int
	Forwards   int
}

// HasContent сообщает, есть ли у сообщения текст или вложение.
func (m RawMessage) HasContent() bool {
	return strings.TrimSpace(m.Text) != "" || m.Attachment != nil
}

// Normalize строит MessageRecord из сырого сообщения.
func Normalize(raw RawMessage, sender *SenderInfo) MessageRecord {
	reactions := make([]Reaction, 0, len(raw.Reactions))
	for _, r := range raw.Reactions {
		count := r.Count
		if count < 0 {
			count = 0
		}
		reactions = append(reactions, Reaction{Emoji: r.Token(), Count: count})
	}
	return MessageRecord{
		ID:           raw.ID,
		Timestamp:    raw.Date.UTC(),
		Text:         raw.Text,
		Entities:     raw.Entities,
		HasMedia:     raw.Attachment != nil,
		Sender:       sender,
		Reactions:    reactions,
		ReplyCount:   nonNegative(raw.Replies),
		ViewCount:    nonNegative(raw.Views),
		ForwardCount: nonNegative(raw.Forwards),
	}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
