package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/usecase/analyze"
)

type fakeFetcher struct {
	records []domain.MessageRecord
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, domain.Conversation, domain.TimeWindow, int) ([]domain.MessageRecord, error) {
	return f.records, f.err
}

type fakeReplicator struct {
	events *[]string
	calls  int
	items []domain.SelectedItem
	days  int
	err   error
}

func (f *fakeReplicator) Replicate(_ context.Context, _ domain.Conversation, items []domain.SelectedItem, days int, _ []domain.MessageRecord, _ *domain.AnalysisResult) (domain.ReplicationReport, error) {
	f.calls++
	if f.events != nil {
		*f.events = append(*f.events, "replicate")
	}
	f.items = items
	f.days = days
	return domain.ReplicationReport{Attempted: len(items), Succeeded: len(items)}, f.err
}

type memoryReports struct {
	saved []domain.RunReport
}

func (m *memoryReports) SaveReport(_ context.Context, r domain.RunReport) error {
	m.saved = append(m.saved, r)
	return nil
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyRun(context.Context, domain.RunReport) error {
	n.calls++
	return errors.New("bot blocked")
}

var window = domain.TimeWindow{
	Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC),
}

func sample() []domain.MessageRecord {
	at := window.End.Add(-time.Hour)
	return []domain.MessageRecord{
		{ID: 1, Timestamp: at, Text: "a", Reactions: []domain.Reaction{{Emoji: "👍", Count: 1}}},
		{ID: 2, Timestamp: at, Text: "b", Reactions: []domain.Reaction{{Emoji: "👍", Count: 7}}},
		{ID: 3, Timestamp: at, Text: "c"},
	}
}

func newService(f Fetcher, r Replicator, reports domain.ReportStore, n domain.Notifier) *Service {
	svc := NewService(f, analyze.NewService(zerolog.Nop()), r, reports, n, zerolog.Nop())
	svc.newRunID = func() string { return "run-1" }
	return svc
}

func TestRunReplicatesTopByReaction(t *testing.T) {
	rep := &fakeReplicator{}
	reports := &memoryReports{}
	notifier := &failingNotifier{}

	report, err := newService(&fakeFetcher{records: sample()}, rep, reports, notifier).
		Run(context.Background(), domain.Conversation{ID: 5, Title: "demo"}, window, Options{TopK: 2})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(rep.items) != 2 || rep.items[0].ID != 2 || rep.items[1].ID != 1 {
		t.Fatalf("ожидали позиции в порядке рейтинга: %+v", rep.items)
	}
	if rep.days != 7 {
		t.Fatalf("ожидали окно в 7 дней, получили %d", rep.days)
	}
	if report.RunID != "run-1" || report.Replication == nil || report.Replication.Succeeded != 2 {
		t.Fatalf("неожиданный отчёт: %+v", report)
	}
	if len(reports.saved) != 1 || notifier.calls != 1 {
		t.Fatalf("отчёт должен сохраняться даже при ошибке уведомления")
	}
}

func TestRunReportsAnalysisBeforeReplication(t *testing.T) {
	var events []string
	rep := &fakeReplicator{events: &events}
	opts := Options{
		TopK: 2,
		OnAnalysis: func(conv domain.Conversation, res *domain.AnalysisResult) {
			if conv.ID != 5 || res == nil || len(res.TopByReaction) != 2 {
				t.Fatalf("неожиданный анализ для %d: %+v", conv.ID, res)
			}
			events = append(events, "analysis")
		},
	}

	if _, err := newService(&fakeFetcher{records: sample()}, rep, nil, nil).
		Run(context.Background(), domain.Conversation{ID: 5}, window, opts); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(events) != 2 || events[0] != "analysis" || events[1] != "replicate" {
		t.Fatalf("анализ должен выводиться до репликации: %v", events)
	}

	events = nil
	opts.SkipReplicate = true
	if _, err := newService(&fakeFetcher{records: sample()}, rep, nil, nil).
		Run(context.Background(), domain.Conversation{ID: 5}, window, opts); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(events) != 1 || events[0] != "analysis" {
		t.Fatalf("без репликации анализ всё равно выводится: %v", events)
	}
}

func TestRunSkipsReplicationWithoutMessages(t *testing.T) {
	rep := &fakeReplicator{}
	reports := &memoryReports{}

	report, err := newService(&fakeFetcher{}, rep, reports, nil).Run(context.Background(), domain.Conversation{ID: 5}, window, Options{TopK: 5})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if rep.calls != 0 || report.Analysis != nil {
		t.Fatal("без сообщений анализ и репликация не выполняются")
	}
	if len(reports.saved) != 1 {
		t.Fatal("отчёт о пустом прогоне тоже сохраняется")
	}
}

func TestRunAnalysisOnly(t *testing.T) {
	rep := &fakeReplicator{}

	report, err := newService(&fakeFetcher{records: sample()}, rep, nil, nil).
		Run(context.Background(), domain.Conversation{ID: 5}, window, Options{TopK: 5, SkipReplicate: true})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if rep.calls != 0 || report.Analysis == nil || report.Analysis.TotalMessages != 3 {
		t.Fatalf("ожидали только анализ: %+v", report)
	}
}

func TestRunReportsReplicationError(t *testing.T) {
	boom := errors.New("archive target unavailable")
	reports := &memoryReports{}

	report, err := newService(&fakeFetcher{records: sample()}, &fakeReplicator{err: boom}, reports, nil).
		Run(context.Background(), domain.Conversation{ID: 5}, window, Options{TopK: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку репликации, получили %v", err)
	}
	if report.ReplicateErr == "" || len(reports.saved) != 1 || reports.saved[0].ReplicateErr == "" {
		t.Fatalf("ошибка репликации должна попасть в отчёт: %+v", report)
	}
}

func TestRunPropagatesFetchCancellation(t *testing.T) {
	rep := &fakeReplicator{}

	_, err := newService(&fakeFetcher{records: sample()[:1], err: context.Canceled}, rep, nil, nil).
		Run(context.Background(), domain.Conversation{ID: 5}, window, Options{TopK: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
	if rep.calls != 0 {
		t.Fatal("после отмены репликация не запускается")
	}
}
