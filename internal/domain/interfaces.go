package domain

import (
	"context"
	"time"
)

// Gateway — авторизованная сессия с провайдером сообщений.
// Все вызовы блокирующие и должны выполняться последовательно в рамках одного прогона.
type Gateway interface {
	ResolveConversation(ctx context.Context, id int64) (Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	// StreamMessages отдаёт сообщения не позже offset, от новых к старым.
	StreamMessages(ctx context.Context, conv Conversation, offset time.Time) MessageStream
	GetMessage(ctx context.Context, conv Conversation, id int64) (RawMessage, error)
	ResolveSender(ctx context.Context, conv Conversation, senderID int64) (SenderInfo, error)
	// SendText принимает HTML: пользовательский текст должен быть экранирован.
	SendText(ctx context.Context, conv Conversation, text string) error
	Forward(ctx context.Context, to, from Conversation, id int64) error
	// Download сохраняет вложение по path и возвращает фактический путь; пустой путь означает, что файла нет.
	Download(ctx context.Context, att Attachment, path string) (string, error)
	Upload(ctx context.Context, conv Conversation, path, caption string) error
	CreateConversation(ctx context.Context, title, about string) (Conversation, error)
}

// MessageStream — ленивая последовательность сообщений. Конец потока обозначается io.EOF.
type MessageStream interface {
	Next(ctx context.Context) (RawMessage, error)
}

// ProgressObserver получает уведомления о ходе загрузки. Общее количество заранее неизвестно.
type ProgressObserver interface {
	Progress(fetched int)
	Done(fetched int, elapsed time.Duration)
}

// ReportStore сохраняет результаты анализа.
type ReportStore interface {
	SaveReport(ctx context.Context, report RunReport) error
}

// HistoryStore хранит список ранее выбранных бесед.
type HistoryStore interface {
	Load(ctx context.Context) ([]ConversationRef, error)
	Save(ctx context.Context, refs []ConversationRef) error
}

// Notifier сообщает оператору об итогах прогона.
type Notifier interface {
	NotifyRun(ctx context.Context, report RunReport) error
}

// RunReport описывает итог обработки одной беседы.
type RunReport struct {
	RunID        string
	Source       Conversation
	Window       TimeWindow
	StartedAt    time.Time
	FinishedAt   time.Time
	Analysis     *AnalysisResult
	Replication  *ReplicationReport
	ReplicateErr string
}
