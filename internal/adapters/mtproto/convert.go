package mtproto

import (
	"time"

	"github.com/gotd/td/tg"

	"tg-reviewer/internal/domain"
)

// convertMessage переводит сообщение gotd в доменное представление.
func convertMessage(m *tg.Message) domain.RawMessage {
	raw := domain.RawMessage{
		ID:   int64(m.ID),
		Date: time.Unix(int64(m.Date), 0).UTC(),
		Text: m.Message,
	}
	if len(m.Entities) > 0 {
		raw.Entities = convertEntities(m.Entities)
	}
	if from, ok := m.GetFromID(); ok {
		raw.SenderID = peerID(from)
	}
	if media, ok := m.GetMedia(); ok {
		raw.Attachment = convertMedia(media)
	}
	if reactions, ok := m.GetReactions(); ok {
		raw.Reactions = convertReactions(reactions.Results)
	}
	if replies, ok := m.GetReplies(); ok {
		raw.Replies = replies.Replies
	}
	if views, ok := m.GetViews(); ok {
		raw.Views = views
	}
	if forwards, ok := m.GetForwards(); ok {
		raw.Forwards = forwards
	}
	return raw
}

func peerID(p tg.PeerClass) int64 {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID
	case *tg.PeerChannel:
		return v.ChannelID
	case *tg.PeerChat:
		return v.ChatID
	default:
		return 0
	}
}

func convertReactions(results []tg.ReactionCount) []domain.RawReaction {
	out := make([]domain.RawReaction, 0, len(results))
	for _, r := range results {
		item := domain.RawReaction{Count: r.Count}
		switch v := r.Reaction.(type) {
		case *tg.ReactionEmoji:
			item.Kind = domain.ReactionEmoji
			item.Emoticon = v.Emoticon
		case *tg.ReactionCustomEmoji:
			item.Kind = domain.ReactionCustomEmoji
			item.CustomEmojiID = v.DocumentID
		default:
			item.Kind = domain.ReactionUnknown
		}
		out = append(out, item)
	}
	return out
}

// convertEntities сохраняет оформление текста. Упоминания, ссылки и хэштеги
// Telegram распознаёт сам при отправке, их не переносим.
func convertEntities(entities []tg.MessageEntityClass) []domain.TextEntity {
	out := make([]domain.TextEntity, 0, len(entities))
	for _, e := range entities {
		item := domain.TextEntity{Offset: e.GetOffset(), Length: e.GetLength()}
		switch v := e.(type) {
		case *tg.MessageEntityBold:
			item.Kind = domain.EntityBold
		case *tg.MessageEntityItalic:
			item.Kind = domain.EntityItalic
		case *tg.MessageEntityUnderline:
			item.Kind = domain.EntityUnderline
		case *tg.MessageEntityStrike:
			item.Kind = domain.EntityStrike
		case *tg.MessageEntitySpoiler:
			item.Kind = domain.EntitySpoiler
		case *tg.MessageEntityCode:
			item.Kind = domain.EntityCode
		case *tg.MessageEntityPre:
			item.Kind = domain.EntityPre
		case *tg.MessageEntityBlockquote:
			item.Kind = domain.EntityBlockquote
		case *tg.MessageEntityTextURL:
			item.Kind = domain.EntityTextURL
			item.URL = v.URL
		default:
			continue
		}
		out = append(out, item)
	}
	return out
}

// convertMedia описывает вложение. Превью ссылок вложением не считаются: ссылка уже есть в тексте.
func convertMedia(media tg.MessageMediaClass) *domain.Attachment {
	switch v := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := v.GetPhoto()
		if !ok {
			return &domain.Attachment{Kind: domain.AttachmentPhoto}
		}
		att := &domain.Attachment{Kind: domain.AttachmentPhoto, MimeType: "image/jpeg"}
		if p, ok := photo.(*tg.Photo); ok {
			att.Location = photoLocation(p)
		}
		return att
	case *tg.MessageMediaDocument:
		doc, ok := v.GetDocument()
		if !ok {
			return &domain.Attachment{Kind: domain.AttachmentDocument}
		}
		att := &domain.Attachment{Kind: domain.AttachmentDocument}
		if d, ok := doc.(*tg.Document); ok {
			att.MimeType = d.MimeType
			att.Size = d.Size
			att.Location = d.AsInputDocumentFileLocation()
			for _, attr := range d.Attributes {
				if name, ok := attr.(*tg.DocumentAttributeFilename); ok && name.FileName != "" {
					att.FileName = name.FileName
					break
				}
			}
		}
		return att
	case *tg.MessageMediaWebPage, *tg.MessageMediaEmpty:
		return nil
	default:
		return &domain.Attachment{Kind: domain.AttachmentOther}
	}
}

// photoLocation выбирает последний (самый крупный) размер фотографии.
func photoLocation(p *tg.Photo) tg.InputFileLocationClass {
	thumb := ""
	for _, size := range p.Sizes {
		switch size.(type) {
		case *tg.PhotoStrippedSize, *tg.PhotoPathSize, *tg.PhotoSizeEmpty:
			continue
		}
		thumb = size.GetType()
	}
	return &tg.InputPhotoFileLocation{
		ID:            p.ID,
		AccessHash:    p.AccessHash,
		FileReference: p.FileReference,
		ThumbSize:     thumb,
	}
}

// userInfo переводит пользователя gotd в SenderInfo.
func userInfo(u *tg.User) domain.SenderInfo {
	return domain.SenderInfo{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// channelSender используется, когда сообщение опубликовано от имени канала.
func channelSender(c *tg.Channel) domain.SenderInfo {
	return domain.SenderInfo{ID: c.ID, Username: c.Username, FirstName: c.Title}
}
