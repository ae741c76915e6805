package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

const (
	// DefaultMaxRecords ограничивает загрузку даже на неограниченном окне.
	DefaultMaxRecords = 100000
	// DefaultProgressEvery задаёт шаг уведомлений о прогрессе.
	DefaultProgressEvery = 10
)

// Service загружает сообщения беседы за временное окно.
type Service struct {
	gateway       domain.Gateway
	log           zerolog.Logger
	progress      domain.ProgressObserver
	maxRecords    int
	progressEvery int
	clock         func() time.Time
}

// NewService создаёт загрузчик. progress может быть nil.
func NewService(gateway domain.Gateway, log zerolog.Logger, progress domain.ProgressObserver, maxRecords, progressEvery int) *Service {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Service{
		gateway:       gateway,
		log:           log.With().Str("component", "ingest").Logger(),
		progress:      progress,
		maxRecords:    maxRecords,
		progressEvery: progressEvery,
		clock:         time.Now,
	}
}

// Fetch возвращает сообщения с Start ≤ timestamp ≤ End в порядке выдачи провайдера.
// limit > 0 дополнительно ограничивает количество записей.
// Ошибка провайдера посреди потока не прерывает работу: возвращается накопленный результат.
// Ошибка возвращается только при отмене ctx, вместе с частичным результатом.
func (s *Service) Fetch(ctx context.Context, conv domain.Conversation, window domain.TimeWindow, limit int) ([]domain.MessageRecord, error) {
	window = domain.TimeWindow{Start: window.Start.UTC(), End: window.End.UTC()}
	ceiling := s.maxRecords
	if limit > 0 && limit < ceiling {
		ceiling = limit
	}

	log := s.log.With().Int64("conversation", conv.ID).Time("start", window.Start).Time("end", window.End).Logger()
	log.Info().Str("title", conv.Title).Int("ceiling", ceiling).Msg("ingest: загрузка сообщений")

	startedAt := s.clock()
	records := make([]domain.MessageRecord, 0, min(ceiling, 1024))
	senders := make(map[int64]*domain.SenderInfo)
	defer func() {
		elapsed := s.clock().Sub(startedAt)
		metrics.IngestDuration.Observe(elapsed.Seconds())
		if s.progress != nil {
			s.progress.Done(len(records), elapsed)
		}
	}()

	stream := s.gateway.StreamMessages(ctx, conv, window.End)
	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		raw, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			metrics.IncIngest("provider_error")
			log.Warn().Err(err).Int("fetched", len(records)).Msg("ingest: ошибка провайдера, возвращаем частичный результат")
			break
		}

		ts := raw.Date.UTC()
		if ts.Before(window.Start) {
			// Поток идёт от новых к старым, дальше сообщений из окна не будет.
			log.Debug().Int64("message", raw.ID).Time("date", ts).Msg("ingest: достигнуто начало окна")
			break
		}
		if ts.After(window.End) {
			metrics.IncIngest("after_window")
			continue
		}
		if !raw.HasContent() {
			metrics.IncIngest("empty")
			continue
		}

		sender := s.resolveSender(ctx, conv, raw.SenderID, senders)
		records = append(records, domain.Normalize(raw, sender))
		metrics.IncIngest("accepted")

		if s.progress != nil && len(records)%s.progressEvery == 0 {
			s.progress.Progress(len(records))
		}
		if len(records) >= ceiling {
			log.Info().Int("ceiling", ceiling).Msg("ingest: достигнут предел количества сообщений")
			break
		}
	}

	log.Info().Int("fetched", len(records)).Msg("ingest: загрузка завершена")
	return records, nil
}

func (s *Service) resolveSender(ctx context.Context, conv domain.Conversation, senderID int64, cache map[int64]*domain.SenderInfo) *domain.SenderInfo {
	if senderID == 0 {
		return nil
	}
	if cached, ok := cache[senderID]; ok {
		return cached
	}
	info, err := s.gateway.ResolveSender(ctx, conv, senderID)
	if err != nil {
		s.log.Debug().Err(err).Int64("sender", senderID).Msg("ingest: автор не найден, используем заглушку")
		info = domain.SenderInfo{ID: senderID}
	}
	if info.ID == 0 {
		info.ID = senderID
	}
	cache[senderID] = &info
	return &info
}

