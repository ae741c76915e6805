package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/metrics"
)

// Postgres хранит MTProto-сессии и архив отчётов.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.ReportStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS mtproto_sessions (
    name       TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS review_reports (
    run_id          UUID PRIMARY KEY,
    conversation_id BIGINT NOT NULL,
    title           TEXT NOT NULL,
    window_start    TIMESTAMPTZ NOT NULL,
    window_end      TIMESTAMPTZ NOT NULL,
    total_messages  INT NOT NULL,
    replicated      INT NOT NULL,
    report          JSONB NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS review_reports_conversation_idx ON review_reports (conversation_id, created_at DESC);
`

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "", start, err)
	if err != nil {
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

// LoadMTProtoSession загружает сохранённую MTProto-сессию.
func (p *Postgres) LoadMTProtoSession(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if name == "" {
		name = "default"
	}

	var data []byte
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT data FROM mtproto_sessions WHERE name = $1`, name).Scan(&data)
	metrics.ObserveNetworkRequest("postgres", "mtproto_sessions_load", "mtproto_sessions", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// StoreMTProtoSession сохраняет MTProto-сессию.
func (p *Postgres) StoreMTProtoSession(ctx context.Context, name string, data []byte) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if name == "" {
		name = "default"
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO mtproto_sessions (name, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`, name, append([]byte(nil), data...))
	metrics.ObserveNetworkRequest("postgres", "mtproto_sessions_store", "mtproto_sessions", start, err)
	return err
}

// SaveReport сохраняет итог прогона. Повторное сохранение того же run_id перезаписывает отчёт.
func (p *Postgres) SaveReport(ctx context.Context, report domain.RunReport) error {
	payload, err := encodeReport(report)
	if err != nil {
		return fmt.Errorf("кодирование отчёта: %w", err)
	}
	total := 0
	if report.Analysis != nil {
		total = report.Analysis.TotalMessages
	}
	replicated := 0
	if report.Replication != nil {
		replicated = report.Replication.Succeeded
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO review_reports (run_id, conversation_id, title, window_start, window_end, total_messages, replicated, report)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id) DO UPDATE
SET total_messages = EXCLUDED.total_messages,
    replicated = EXCLUDED.replicated,
    report = EXCLUDED.report
`, report.RunID, report.Source.ID, report.Source.Title, report.Window.Start, report.Window.End, total, replicated, payload)
	metrics.ObserveNetworkRequest("postgres", "review_reports_save", "review_reports", start, err)
	if err != nil {
		return fmt.Errorf("сохранение отчёта %s: %w", report.RunID, err)
	}
	return nil
}
