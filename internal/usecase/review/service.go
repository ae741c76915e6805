package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-reviewer/internal/domain"
)

// Fetcher загружает сообщения беседы за окно.
type Fetcher interface {
	Fetch(ctx context.Context, conv domain.Conversation, window domain.TimeWindow, limit int) ([]domain.MessageRecord, error)
}

// Analyzer строит рейтинги по набору сообщений.
type Analyzer interface {
	Analyze(records []domain.MessageRecord, topK int) *domain.AnalysisResult
}

// Replicator копирует отобранные сообщения в архив.
type Replicator interface {
	Replicate(ctx context.Context, source domain.Conversation, items []domain.SelectedItem, windowDays int, all []domain.MessageRecord, analysis *domain.AnalysisResult) (domain.ReplicationReport, error)
}

// Options содержит уже проверенные параметры одного прогона.
type Options struct {
	Limit int
	TopK  int
	// SkipReplicate оставляет только анализ.
	SkipReplicate bool
	// OnAnalysis вызывается с готовым анализом до начала репликации.
	OnAnalysis func(conv domain.Conversation, res *domain.AnalysisResult)
}

// Service проводит один обзор беседы: загрузка, анализ, репликация, сохранение отчёта.
type Service struct {
	fetcher    Fetcher
	analyzer   Analyzer
	replicator Replicator
	reports    domain.ReportStore
	notifier   domain.Notifier
	log        zerolog.Logger
	clock      func() time.Time
	newRunID   func() string
}

// NewService создаёт оркестратор. reports и notifier могут быть nil.
func NewService(fetcher Fetcher, analyzer Analyzer, replicator Replicator, reports domain.ReportStore, notifier domain.Notifier, log zerolog.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		analyzer:   analyzer,
		replicator: replicator,
		reports:    reports,
		notifier:   notifier,
		log:        log.With().Str("component", "review").Logger(),
		clock:      time.Now,
		newRunID:   uuid.NewString,
	}
}

// Run обрабатывает одну беседу. Ошибка репликации возвращается вместе с заполненным отчётом.
func (s *Service) Run(ctx context.Context, conv domain.Conversation, window domain.TimeWindow, opts Options) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     s.newRunID(),
		Source:    conv,
		Window:    window,
		StartedAt: s.clock().UTC(),
	}
	log := s.log.With().Str("run_id", report.RunID).Int64("conversation", conv.ID).Logger()
	log.Info().Str("title", conv.Title).Int("limit", opts.Limit).Int("top", opts.TopK).Msg("review: начинаем обзор")

	records, err := s.fetcher.Fetch(ctx, conv, window, opts.Limit)
	if err != nil {
		return s.finish(ctx, log, report), fmt.Errorf("загрузка сообщений %d: %w", conv.ID, err)
	}
	if len(records) == 0 {
		log.Warn().Msg("review: в окне нет сообщений")
		return s.finish(ctx, log, report), nil
	}

	report.Analysis = s.analyzer.Analyze(records, opts.TopK)
	if report.Analysis != nil && opts.OnAnalysis != nil {
		opts.OnAnalysis(conv, report.Analysis)
	}
	if report.Analysis == nil || opts.SkipReplicate {
		return s.finish(ctx, log, report), nil
	}

	items := domain.SelectItems(report.Analysis.TopByReaction)
	if len(items) == 0 {
		return s.finish(ctx, log, report), nil
	}
	replication, err := s.replicator.Replicate(ctx, conv, items, window.Days(), records, report.Analysis)
	report.Replication = &replication
	if err != nil {
		report.ReplicateErr = err.Error()
		return s.finish(ctx, log, report), fmt.Errorf("репликация %d: %w", conv.ID, err)
	}
	return s.finish(ctx, log, report), nil
}

// finish сохраняет отчёт и уведомляет оператора. Ошибки хранилища не влияют на результат прогона.
func (s *Service) finish(ctx context.Context, log zerolog.Logger, report domain.RunReport) domain.RunReport {
	report.FinishedAt = s.clock().UTC()
	// отчёт сохраняем и после отмены прогона
	ctx = context.WithoutCancel(ctx)
	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			log.Error().Err(err).Msg("review: не удалось сохранить отчёт")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, report); err != nil {
			log.Warn().Err(err).Msg("review: не удалось отправить уведомление")
		}
	}
	log.Info().Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).Msg("review: обзор завершён")
	return report
}
