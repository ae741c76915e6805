package replicate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

var (
	// ErrTargetUnavailable: архивную беседу не удалось найти или создать.
	ErrTargetUnavailable = errors.New("archive target unavailable")
	// ErrHeaderFailed: не удалось отправить заголовок прогона.
	ErrHeaderFailed = errors.New("archive header failed")
	// ErrFooterFailed: не удалось отправить итоговое сообщение.
	ErrFooterFailed = errors.New("archive footer failed")
)

const (
	DefaultItemDelay   = time.Second
	DefaultItemTimeout = 2 * time.Minute
)

// Service копирует отобранные сообщения в архивную беседу.
type Service struct {
	gateway     domain.Gateway
	log         zerolog.Logger
	scratchDir  string
	itemDelay   time.Duration
	itemTimeout time.Duration
	clock       func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewService создаёт репликатор. itemDelay < 0 отключает паузу между позициями.
func NewService(gateway domain.Gateway, log zerolog.Logger, scratchDir string, itemDelay, itemTimeout time.Duration) *Service {
	if scratchDir == "" {
		scratchDir = filepath.Join("results", "media")
	}
	if itemDelay < 0 {
		itemDelay = 0
	}
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}
	return &Service{
		gateway:     gateway,
		log:         log.With().Str("component", "replicate").Logger(),
		scratchDir:  scratchDir,
		itemDelay:   itemDelay,
		itemTimeout: itemTimeout,
		clock:       time.Now,
		sleep:       sleepCtx,
	}
}

// Replicate выполняет прогон: поиск архива, заголовок, позиции по порядку рейтинга, итог.
// Ошибки отдельных позиций не прерывают прогон и попадают в отчёт.
// Ошибка возвращается, если нет архива, не ушёл заголовок или итог, либо ctx отменён.
func (s *Service) Replicate(ctx context.Context, source domain.Conversation, items []domain.SelectedItem, windowDays int, all []domain.MessageRecord, analysis *domain.AnalysisResult) (domain.ReplicationReport, error) {
	report := domain.ReplicationReport{}
	log := s.log.With().Int64("source", source.ID).Str("title", source.Title).Logger()

	target, err := s.resolveTarget(ctx, source)
	if err != nil {
		log.Error().Err(err).Msg("replicate: архивная беседа недоступна")
		return report, fmt.Errorf("%w: %v", ErrTargetUnavailable, err)
	}
	report.Target = target
	log = log.With().Int64("target", target.ID).Logger()
	log.Info().Str("archive", target.Name).Bool("created", target.Created).Int("items", len(items)).Msg("replicate: начинаем копирование")

	now := s.clock()
	header := formatHeader(source.Title, now, len(items), headerSpan(now, windowDays, len(items), all, analysis), windowDays)
	if err := s.gateway.SendText(ctx, target.Conversation, header); err != nil {
		log.Error().Err(err).Msg("replicate: не удалось отправить заголовок")
		return report, fmt.Errorf("%w: %v", ErrHeaderFailed, err)
	}

	runDir := filepath.Join(s.scratchDir, uuid.NewString())
	defer os.Remove(runDir)

	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("done", idx).Msg("replicate: прогон прерван")
			return report, err
		}
		report.Attempted++

		fallback, err := s.replicateItem(ctx, source, target.Conversation, idx+1, item, runDir)
		switch {
		case errors.Is(err, errSkipped):
			report.Skipped = append(report.Skipped, item.ID)
			metrics.IncReplicate("skipped")
			log.Warn().Int64("message", item.ID).Msg("replicate: сообщение без текста и вложения, пропускаем")
		case err != nil:
			report.FailedIDs = append(report.FailedIDs, item.ID)
			metrics.IncReplicate("failed")
			log.Error().Err(err).Int64("message", item.ID).Int("rank", idx+1).Msg("replicate: ошибка копирования сообщения")
		default:
			report.Succeeded++
			metrics.IncReplicate("replicated")
			if fallback {
				report.Fallbacks++
				metrics.ReplicateFallbacks.Inc()
			}
		}

		if s.itemDelay > 0 {
			if err := s.sleep(ctx, s.itemDelay); err != nil {
				log.Warn().Err(err).Int("done", idx+1).Msg("replicate: прогон прерван")
				return report, err
			}
		}
	}

	if err := s.gateway.SendText(ctx, target.Conversation, formatFooter(report.Succeeded, len(items))); err != nil {
		log.Error().Err(err).Msg("replicate: не удалось отправить итог")
		return report, fmt.Errorf("%w: %v", ErrFooterFailed, err)
	}
	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.FailedIDs)).
		Int("skipped", len(report.Skipped)).
		Int("fallbacks", report.Fallbacks).
		Msg("replicate: копирование завершено")
	return report, nil
}

// resolveTarget ищет архив по названию среди супергрупп и каналов и создаёт его при отсутствии.
// Обычные группы с тем же названием архивом не считаются.
func (s *Service) resolveTarget(ctx context.Context, source domain.Conversation) (domain.ArchiveTarget, error) {
	name := ArchiveName(source.Title)
	convs, err := s.gateway.ListConversations(ctx)
	if err != nil {
		return domain.ArchiveTarget{}, fmt.Errorf("list conversations: %w", err)
	}
	for _, conv := range convs {
		if conv.Channel && conv.Title == name && conv.ID != source.ID {
			s.log.Info().Str("archive", name).Int64("id", conv.ID).Msg("replicate: найден существующий архив")
			return domain.ArchiveTarget{Name: conv.Title, ID: conv.ID, Conversation: conv}, nil
		}
	}

	s.log.Info().Str("archive", name).Msg("replicate: архив не найден, создаём")
	conv, err := s.gateway.CreateConversation(ctx, name, archiveAbout(source.Title))
	if err != nil {
		return domain.ArchiveTarget{}, fmt.Errorf("create conversation: %w", err)
	}
	return domain.ArchiveTarget{Name: conv.Title, ID: conv.ID, Conversation: conv, Created: true}, nil
}

var errSkipped = errors.New("nothing to replicate")

// replicateItem копирует одну позицию. Возвращает true, если вложение ушло через перезаливку.
func (s *Service) replicateItem(ctx context.Context, source, target domain.Conversation, rank int, item domain.SelectedItem, runDir string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	raw, err := s.gateway.GetMessage(ctx, source, item.ID)
	if err != nil {
		return false, fmt.Errorf("get message %d: %w", item.ID, err)
	}
	if !raw.HasContent() {
		return false, errSkipped
	}

	var sender *domain.SenderInfo
	if raw.SenderID != 0 {
		info, err := s.gateway.ResolveSender(ctx, source, raw.SenderID)
		if err != nil {
			info = domain.SenderInfo{ID: raw.SenderID}
		}
		sender = &info
	}
	rec := domain.Normalize(raw, sender)

	if err := s.gateway.SendText(ctx, target, formatSummary(rank, rec, DeepLink(source, raw.ID))); err != nil {
		return false, fmt.Errorf("send summary: %w", err)
	}
	if rec.Text != "" {
		if err := s.gateway.SendText(ctx, target, formatText(rec)); err != nil {
			return false, fmt.Errorf("send text: %w", err)
		}
	}
	if raw.Attachment == nil {
		return false, nil
	}

	ferr := s.gateway.Forward(ctx, target, source, raw.ID)
	if ferr == nil {
		return false, nil
	}
	s.log.Warn().Err(ferr).Int64("message", raw.ID).Msg("replicate: пересылка не удалась, скачиваем и перезаливаем")
	if err := s.reupload(ctx, target, raw.ID, *raw.Attachment, runDir); err != nil {
		return false, fmt.Errorf("forward: %v; reupload: %w", ferr, err)
	}
	return true, nil
}

// reupload скачивает вложение во временный файл и отправляет его заново.
// Временный файл удаляется при любом исходе.
func (s *Service) reupload(ctx context.Context, target domain.Conversation, messageID int64, att domain.Attachment, runDir string) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	name := scratchName(messageID, att)
	path := filepath.Join(runDir, name)
	defer s.removeScratch(path)

	saved, err := s.gateway.Download(ctx, att, path)
	if saved != "" && saved != path {
		defer s.removeScratch(saved)
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if saved == "" {
		return fmt.Errorf("download: empty file for message %d", messageID)
	}
	s.log.Debug().Str("path", saved).Msg("replicate: вложение скачано")

	if err := s.gateway.Upload(ctx, target, saved, uploadCaption(name)); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func (s *Service) removeScratch(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("replicate: не удалось удалить временный файл")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
