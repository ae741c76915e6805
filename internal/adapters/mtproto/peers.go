package mtproto

import (
	"sync"

	"github.com/gotd/td/tg"

	"tg-reviewer/internal/domain"
)

// channelConversation строит беседу по каналу или супергруппе.
func channelConversation(c *tg.Channel) domain.Conversation {
	kind := domain.ConversationGroup
	if c.Broadcast {
		kind = domain.ConversationChannel
	}
	return domain.Conversation{
		ID:       c.ID,
		Title:    c.Title,
		Username: c.Username,
		Kind:     kind,
		Channel:  true,
		Handle:   &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash},
	}
}

// chatConversation строит беседу по обычной группе.
func chatConversation(c *tg.Chat) domain.Conversation {
	return domain.Conversation{
		ID:     c.ID,
		Title:  c.Title,
		Kind:   domain.ConversationGroup,
		Handle: &tg.InputPeerChat{ChatID: c.ID},
	}
}

// conversationFromChat возвращает беседу для групп и каналов, остальные типы пропускаются.
func conversationFromChat(chat tg.ChatClass) (domain.Conversation, bool) {
	switch c := chat.(type) {
	case *tg.Channel:
		return channelConversation(c), true
	case *tg.Chat:
		return chatConversation(c), true
	default:
		return domain.Conversation{}, false
	}
}

func inputPeer(conv domain.Conversation) (tg.InputPeerClass, error) {
	peer, ok := conv.Handle.(tg.InputPeerClass)
	if !ok || peer == nil {
		return nil, ErrConversationNotFound
	}
	return peer, nil
}

// normalizeID приводит идентификатор вида -100XXXXXXXXXX к идентификатору канала.
func normalizeID(id int64) int64 {
	const channelShift = 1000000000000
	switch {
	case id <= -channelShift:
		return -id - channelShift
	case id < 0:
		return -id
	default:
		return id
	}
}

// senderCache накапливает пользователей и каналы из ответов API.
type senderCache struct {
	mu      sync.Mutex
	senders map[int64]domain.SenderInfo
}

func newSenderCache() *senderCache {
	return &senderCache{senders: make(map[int64]domain.SenderInfo)}
}

func (c *senderCache) addUsers(users []tg.UserClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			c.senders[user.ID] = userInfo(user)
		}
	}
}

func (c *senderCache) addChats(chats []tg.ChatClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chats {
		if channel, ok := ch.(*tg.Channel); ok {
			if _, exists := c.senders[channel.ID]; !exists {
				c.senders[channel.ID] = channelSender(channel)
			}
		}
	}
}

func (c *senderCache) addUserMap(users map[int64]*tg.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, u := range users {
		c.senders[id] = userInfo(u)
	}
}

func (c *senderCache) addChannelMap(channels map[int64]*tg.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range channels {
		if _, exists := c.senders[id]; !exists {
			c.senders[id] = channelSender(ch)
		}
	}
}

func (c *senderCache) get(id int64) (domain.SenderInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.senders[id]
	return info, ok
}
