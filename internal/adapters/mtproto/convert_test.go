package mtproto

import (
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"tg-reviewer/internal/domain"
)

func TestConvertMessage(t *testing.T) {
	date := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &tg.Message{ID: 15, Date: int(date.Unix()), Message: "привет"}
	msg.SetFromID(&tg.PeerUser{UserID: 501})
	msg.SetReplies(tg.MessageReplies{Replies: 4})
	msg.SetViews(120)
	msg.SetForwards(3)
	msg.SetReactions(tg.MessageReactions{Results: []tg.ReactionCount{
		{Reaction: &tg.ReactionEmoji{Emoticon: "❤"}, Count: 5},
		{Reaction: &tg.ReactionCustomEmoji{DocumentID: 99}, Count: 2},
		{Reaction: &tg.ReactionEmpty{}, Count: 1},
	}})

	raw := convertMessage(msg)
	if raw.ID != 15 || !raw.Date.Equal(date) || raw.SenderID != 501 {
		t.Fatalf("неожиданные базовые поля: %+v", raw)
	}
	if raw.Replies != 4 || raw.Views != 120 || raw.Forwards != 3 {
		t.Fatalf("неожиданные счётчики: %+v", raw)
	}
	rec := domain.Normalize(raw, nil)
	want := []domain.Reaction{{Emoji: "❤", Count: 5}, {Emoji: "自訂表情:99", Count: 2}, {Emoji: "未知表情符號", Count: 1}}
	for i, r := range want {
		if rec.Reactions[i] != r {
			t.Fatalf("реакция %d: ожидали %+v, получили %+v", i, r, rec.Reactions[i])
		}
	}
	if rec.TotalReactions() != 8 {
		t.Fatalf("ожидали сумму 8, получили %d", rec.TotalReactions())
	}
}

func TestConvertMessageKeepsEntities(t *testing.T) {
	msg := &tg.Message{
		ID:      16,
		Message: "read the report here",
		Entities: []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 4},
			&tg.MessageEntityTextURL{Offset: 16, Length: 4, URL: "https://example.com/report"},
			&tg.MessageEntityHashtag{Offset: 5, Length: 3},
			&tg.MessageEntityPre{Offset: 9, Length: 6, Language: "go"},
		},
	}

	raw := convertMessage(msg)
	want := []domain.TextEntity{
		{Kind: domain.EntityBold, Offset: 0, Length: 4},
		{Kind: domain.EntityTextURL, Offset: 16, Length: 4, URL: "https://example.com/report"},
		{Kind: domain.EntityPre, Offset: 9, Length: 6},
	}
	if len(raw.Entities) != len(want) {
		t.Fatalf("ожидали %d сущности, получили %+v", len(want), raw.Entities)
	}
	for i, e := range want {
		if raw.Entities[i] != e {
			t.Fatalf("сущность %d: ожидали %+v, получили %+v", i, e, raw.Entities[i])
		}
	}
	if rec := domain.Normalize(raw, nil); len(rec.Entities) != 3 || rec.Entities[1].URL != "https://example.com/report" {
		t.Fatalf("ссылка потеряна при нормализации: %+v", rec.Entities)
	}
}

func TestConvertMessageWithoutOptionalFields(t *testing.T) {
	raw := convertMessage(&tg.Message{ID: 1, Message: ""})
	if raw.SenderID != 0 || raw.Attachment != nil || raw.Reactions != nil || raw.Entities != nil || raw.HasContent() {
		t.Fatalf("ожидали пустое сообщение: %+v", raw)
	}
}

func TestConvertMediaDocument(t *testing.T) {
	doc := &tg.Document{
		ID:            7,
		AccessHash:    8,
		FileReference: []byte{1},
		MimeType:      "video/mp4",
		Size:          1024,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeVideo{},
			&tg.DocumentAttributeFilename{FileName: "clip.mp4"},
		},
	}
	media := &tg.MessageMediaDocument{}
	media.SetDocument(doc)

	att := convertMedia(media)
	if att == nil || att.Kind != domain.AttachmentDocument || att.FileName != "clip.mp4" || att.Size != 1024 {
		t.Fatalf("неожиданное вложение: %+v", att)
	}
	loc, ok := att.Location.(*tg.InputDocumentFileLocation)
	if !ok || loc.ID != 7 || loc.AccessHash != 8 {
		t.Fatalf("неожиданный адрес файла: %#v", att.Location)
	}
}

func TestConvertMediaPhotoPicksLargestSize(t *testing.T) {
	photo := &tg.Photo{ID: 3, AccessHash: 4, Sizes: []tg.PhotoSizeClass{
		&tg.PhotoStrippedSize{Type: "i"},
		&tg.PhotoSize{Type: "m"},
		&tg.PhotoSizeProgressive{Type: "y"},
		&tg.PhotoPathSize{Type: "j"},
	}}
	media := &tg.MessageMediaPhoto{}
	media.SetPhoto(photo)

	att := convertMedia(media)
	loc, ok := att.Location.(*tg.InputPhotoFileLocation)
	if !ok || loc.ThumbSize != "y" {
		t.Fatalf("ожидали самый крупный размер: %#v", att.Location)
	}
	if convertMedia(&tg.MessageMediaWebPage{}) != nil {
		t.Fatal("превью ссылки не считается вложением")
	}
	if att := convertMedia(&tg.MessageMediaGeo{}); att == nil || att.Kind != domain.AttachmentOther {
		t.Fatalf("ожидали прочее вложение: %+v", att)
	}
}

func TestNormalizeID(t *testing.T) {
	cases := map[int64]int64{
		-1001234567890: 1234567890,
		-4567:          4567,
		42:             42,
	}
	for in, want := range cases {
		if got := normalizeID(in); got != want {
			t.Fatalf("normalizeID(%d) = %d, ожидали %d", in, got, want)
		}
	}
}

func TestChannelConversationKind(t *testing.T) {
	broadcast := channelConversation(&tg.Channel{ID: 1, Title: "news", Broadcast: true})
	group := channelConversation(&tg.Channel{ID: 2, Title: "chat", Megagroup: true})
	if broadcast.Kind != domain.ConversationChannel || group.Kind != domain.ConversationGroup {
		t.Fatalf("неожиданные типы: %s %s", broadcast.Kind, group.Kind)
	}
	if !broadcast.Channel || !group.Channel {
		t.Fatal("супергруппы и каналы должны отмечаться как Channel")
	}
	basic, ok := conversationFromChat(&tg.Chat{ID: 4, Title: "old"})
	if !ok || basic.Channel {
		t.Fatalf("обычная группа не должна отмечаться как Channel: %+v", basic)
	}
	if _, ok := conversationFromChat(&tg.ChatForbidden{ID: 3}); ok {
		t.Fatal("недоступные группы не попадают в список")
	}
}

func TestSenderCache(t *testing.T) {
	cache := newSenderCache()
	cache.addUsers([]tg.UserClass{&tg.User{ID: 1, FirstName: "Ann", Username: "ann"}, &tg.UserEmpty{ID: 2}})
	cache.addChats([]tg.ChatClass{&tg.Channel{ID: 3, Title: "news"}})

	if info, ok := cache.get(1); !ok || info.DisplayName() != "Ann（ann）" {
		t.Fatalf("неожиданный автор: %+v", info)
	}
	if _, ok := cache.get(2); ok {
		t.Fatal("пустой пользователь не кэшируется")
	}
	if info, ok := cache.get(3); !ok || info.FirstName != "news" {
		t.Fatalf("канал должен использоваться как автор: %+v", info)
	}
}
