package mtproto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/telegram/query/messages"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	tgtext "tg-reviewer/internal/adapters/telegram"
	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

var (
	// ErrConversationNotFound — беседа не найдена среди диалогов аккаунта.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound: сообщение удалено или недоступно.
	ErrMessageNotFound = errors.New("message not found")
	// ErrSenderUnknown: автор не встречался в ответах API.
	ErrSenderUnknown = errors.New("sender unknown")
	// ErrNotAuthorized — сессия не авторизована, а номер телефона не задан.
	ErrNotAuthorized = errors.New("mtproto session is not authorized")
	// ErrNoFileLocation: у вложения нет адреса для скачивания.
	ErrNoFileLocation = errors.New("attachment has no file location")
)

const (
	component        = "mtproto"
	historyBatchSize = 100
	dialogsBatchSize = 100
)

// CodePrompt запрашивает код подтверждения у оператора.
type CodePrompt func(ctx context.Context) (string, error)

// Credentials — данные для интерактивного входа.
type Credentials struct {
	Phone    string
	Password string
	Code     CodePrompt
}

// Gateway реализует domain.Gateway поверх gotd.
// Все методы вызываются внутри Run.
type Gateway struct {
	client *telegram.Client
	log    zerolog.Logger

	api        *tg.Client
	sender     *message.Sender
	downloader *downloader.Downloader
	senders    *senderCache

	mu            sync.Mutex
	conversations map[int64]domain.Conversation
}

var _ domain.Gateway = (*Gateway)(nil)

// NewGateway создаёт MTProto клиент с указанным хранилищем сессии.
func NewGateway(apiID int, apiHash string, storage session.Storage, log zerolog.Logger) *Gateway {
	client := telegram.NewClient(apiID, apiHash, telegram.Options{SessionStorage: storage})
	return &Gateway{
		client:        client,
		log:           log.With().Str("component", component).Logger(),
		downloader:    downloader.NewDownloader(),
		senders:       newSenderCache(),
		conversations: make(map[int64]domain.Conversation),
	}
}

// Run подключается, при необходимости авторизуется и выполняет fn.
func (g *Gateway) Run(ctx context.Context, creds Credentials, fn func(ctx context.Context) error) error {
	return g.client.Run(ctx, func(ctx context.Context) error {
		if err := g.authorize(ctx, creds); err != nil {
			return err
		}
		g.api = g.client.API()
		g.sender = message.NewSender(g.api)
		return fn(ctx)
	})
}

func (g *Gateway) authorize(ctx context.Context, creds Credentials) error {
	status, err := g.client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("auth status: %w", err)
	}
	if status.Authorized {
		return nil
	}
	if creds.Phone == "" || creds.Code == nil {
		return ErrNotAuthorized
	}
	g.log.Info().Msg("mtproto: сессия не авторизована, выполняем вход по коду")
	codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
		return creds.Code(ctx)
	})
	flow := auth.NewFlow(auth.Constant(creds.Phone, creds.Password, codeAuth), auth.SendCodeOptions{})
	if err := g.client.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("auth flow: %w", err)
	}
	return nil
}

// ListConversations возвращает группы и каналы из диалогов аккаунта.
func (g *Gateway) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	start := time.Now()
	iter := query.GetDialogs(g.api).BatchSize(dialogsBatchSize).Iter()
	var convs []domain.Conversation
	for iter.Next(ctx) {
		elem := iter.Value()
		var (
			conv domain.Conversation
			ok   bool
		)
		switch p := elem.Peer.(type) {
		case *tg.InputPeerChannel:
			var ch *tg.Channel
			if ch, ok = elem.Entities.Channels()[p.ChannelID]; ok {
				conv = channelConversation(ch)
			}
		case *tg.InputPeerChat:
			var chat *tg.Chat
			if chat, ok = elem.Entities.Chats()[p.ChatID]; ok {
				conv = chatConversation(chat)
			}
		}
		if ok {
			convs = append(convs, conv)
		}
	}
	err := iter.Err()
	metrics.ObserveNetworkRequest(component, "get_dialogs", "", start, err)
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	g.mu.Lock()
	for _, c := range convs {
		g.conversations[c.ID] = c
	}
	g.mu.Unlock()
	g.log.Debug().Int("count", len(convs)).Msg("mtproto: получен список бесед")
	return convs, nil
}

// ResolveConversation ищет беседу по идентификатору. Допускается форма -100XXXXXXXXXX.
func (g *Gateway) ResolveConversation(ctx context.Context, id int64) (domain.Conversation, error) {
	id = normalizeID(id)
	g.mu.Lock()
	conv, ok := g.conversations[id]
	g.mu.Unlock()
	if ok {
		return conv, nil
	}
	if _, err := g.ListConversations(ctx); err != nil {
		return domain.Conversation{}, err
	}
	g.mu.Lock()
	conv, ok = g.conversations[id]
	g.mu.Unlock()
	if !ok {
		return domain.Conversation{}, fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	return conv, nil
}

// StreamMessages отдаёт историю от offset к более старым сообщениям.
func (g *Gateway) StreamMessages(ctx context.Context, conv domain.Conversation, offset time.Time) domain.MessageStream {
	peer, err := inputPeer(conv)
	if err != nil {
		return errStream{err: err}
	}
	// offset_date исключает сообщения ровно на границе, поэтому сдвигаем на секунду.
	iter := query.Messages(g.api).GetHistory(peer).
		OffsetDate(int(offset.Unix()) + 1).
		BatchSize(historyBatchSize).
		Iter()
	return &historyStream{gateway: g, iter: iter, target: metrics.Target(conv.ID)}
}

type historyStream struct {
	gateway *Gateway
	iter    *messages.Iterator
	target  string
	read    int
}

// Next пропускает служебные сообщения. В конце истории возвращается io.EOF.
func (s *historyStream) Next(ctx context.Context) (domain.RawMessage, error) {
	for {
		// Итератор ходит в сеть на границе пачки.
		start := time.Now()
		batchBoundary := s.read%historyBatchSize == 0
		more := s.iter.Next(ctx)
		if batchBoundary || !more {
			metrics.ObserveNetworkRequest(component, "get_history", s.target, start, s.iter.Err())
		}
		if !more {
			if err := s.iter.Err(); err != nil {
				return domain.RawMessage{}, fmt.Errorf("get history: %w", err)
			}
			return domain.RawMessage{}, io.EOF
		}
		s.read++

		elem := s.iter.Value()
		s.gateway.senders.addUserMap(elem.Entities.Users())
		s.gateway.senders.addChannelMap(elem.Entities.Channels())
		m, ok := elem.Msg.(*tg.Message)
		if !ok {
			continue
		}
		return convertMessage(m), nil
	}
}

type errStream struct{ err error }

func (s errStream) Next(context.Context) (domain.RawMessage, error) {
	return domain.RawMessage{}, s.err
}

// GetMessage перечитывает сообщение по идентификатору.
func (g *Gateway) GetMessage(ctx context.Context, conv domain.Conversation, id int64) (domain.RawMessage, error) {
	peer, err := inputPeer(conv)
	if err != nil {
		return domain.RawMessage{}, err
	}
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: int(id)}}

	start := time.Now()
	var resp tg.MessagesMessagesClass
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		resp, err = g.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		resp, err = g.api.MessagesGetMessages(ctx, ids)
	}
	metrics.ObserveNetworkRequest(component, "get_messages", metrics.Target(conv.ID), start, err)
	if err != nil {
		return domain.RawMessage{}, fmt.Errorf("get message %d: %w", id, err)
	}

	var (
		msgs  []tg.MessageClass
		users []tg.UserClass
		chats []tg.ChatClass
	)
	switch r := resp.(type) {
	case *tg.MessagesMessages:
		msgs, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesSlice:
		msgs, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesChannelMessages:
		msgs, users, chats = r.Messages, r.Users, r.Chats
	}
	g.senders.addUsers(users)
	g.senders.addChats(chats)

	for _, msg := range msgs {
		if m, ok := msg.(*tg.Message); ok && int64(m.ID) == id {
			return convertMessage(m), nil
		}
	}
	return domain.RawMessage{}, fmt.Errorf("%w: %d", ErrMessageNotFound, id)
}

// ResolveSender возвращает автора из кэша сущностей, собранного при чтении истории.
func (g *Gateway) ResolveSender(_ context.Context, _ domain.Conversation, senderID int64) (domain.SenderInfo, error) {
	if info, ok := g.senders.get(senderID); ok {
		return info, nil
	}
	return domain.SenderInfo{}, fmt.Errorf("%w: %d", ErrSenderUnknown, senderID)
}

// SendText отправляет текст в HTML-разметке, при необходимости несколькими сообщениями.
func (g *Gateway) SendText(ctx context.Context, conv domain.Conversation, text string) error {
	peer, err := inputPeer(conv)
	if err != nil {
		return err
	}
	for _, part := range tgtext.SplitMessage(text) {
		start := time.Now()
		_, err := g.sender.To(peer).StyledText(ctx, html.String(nil, part))
		metrics.ObserveNetworkRequest(component, "send_message", metrics.Target(conv.ID), start, err)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// Forward пересылает сообщение по ссылке на оригинал.
func (g *Gateway) Forward(ctx context.Context, to, from domain.Conversation, id int64) error {
	toPeer, err := inputPeer(to)
	if err != nil {
		return err
	}
	fromPeer, err := inputPeer(from)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = g.sender.To(toPeer).ForwardIDs(fromPeer, int(id)).Send(ctx)
	metrics.ObserveNetworkRequest(component, "forward_messages", metrics.Target(to.ID), start, err)
	if err != nil {
		return fmt.Errorf("forward %d: %w", id, err)
	}
	return nil
}

// Download сохраняет вложение в path.
func (g *Gateway) Download(ctx context.Context, att domain.Attachment, path string) (string, error) {
	loc, ok := att.Location.(tg.InputFileLocationClass)
	if !ok || loc == nil {
		return "", ErrNoFileLocation
	}
	start := time.Now()
	_, err := g.downloader.Download(g.api, loc).ToPath(ctx, path)
	metrics.ObserveNetworkRequest(component, "download", "", start, err)
	if err != nil {
		return path, fmt.Errorf("download: %w", err)
	}
	return path, nil
}

// Upload загружает файл и отправляет его с подписью.
// Изображения уходят как фото, остальное отправляется документом с исходным именем.
func (g *Gateway) Upload(ctx context.Context, conv domain.Conversation, path, caption string) error {
	peer, err := inputPeer(conv)
	if err != nil {
		return err
	}
	start := time.Now()
	file, err := uploader.NewUploader(g.api).FromPath(ctx, path)
	metrics.ObserveNetworkRequest(component, "upload", metrics.Target(conv.ID), start, err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	var media message.MediaOption
	switch mimeType {
	case "image/jpeg", "image/png":
		media = message.UploadedPhoto(file, styling.Plain(caption))
	default:
		doc := message.UploadedDocument(file, styling.Plain(caption)).Filename(name)
		if mimeType != "" {
			doc = doc.MIME(mimeType)
		}
		media = doc
	}

	start = time.Now()
	_, err = g.sender.To(peer).Media(ctx, media)
	metrics.ObserveNetworkRequest(component, "send_media", metrics.Target(conv.ID), start, err)
	if err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	return nil
}

// CreateConversation создаёт супергруппу.
func (g *Gateway) CreateConversation(ctx context.Context, title, about string) (domain.Conversation, error) {
	start := time.Now()
	upd, err := g.api.ChannelsCreateChannel(ctx, &tg.ChannelsCreateChannelRequest{
		Title:     title,
		About:     about,
		Megagroup: true,
	})
	metrics.ObserveNetworkRequest(component, "create_channel", "", start, err)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("create channel: %w", err)
	}

	var chats []tg.ChatClass
	switch u := upd.(type) {
	case *tg.Updates:
		chats = u.Chats
	case *tg.UpdatesCombined:
		chats = u.Chats
	}
	for _, chat := range chats {
		if conv, ok := conversationFromChat(chat); ok {
			g.mu.Lock()
			g.conversations[conv.ID] = conv
			g.mu.Unlock()
			g.log.Info().Int64("id", conv.ID).Str("title", conv.Title).Msg("mtproto: создана супергруппа")
			return conv, nil
		}
	}
	return domain.Conversation{}, errors.New("create channel: no channel in updates")
}
