package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gotd/td/session"
	"github.com/prometheus/client_golang/prometheus"

	"tg-reviewer/internal/adapters/console"
	"tg-reviewer/internal/adapters/history"
	"tg-reviewer/internal/adapters/mtproto"
	"tg-reviewer/internal/adapters/notify"
	"tg-reviewer/internal/adapters/repo"
	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/cache"
	"tg-reviewer/internal/infra/config"
	"tg-reviewer/internal/infra/db"
	apphttp "tg-reviewer/internal/infra/http"
	applog "tg-reviewer/internal/infra/log"
	"tg-reviewer/internal/infra/metrics"
	"tg-reviewer/internal/usecase/analyze"
	"tg-reviewer/internal/usecase/ingest"
	"tg-reviewer/internal/usecase/replicate"
	"tg-reviewer/internal/usecase/review"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	opts, err := parseOptions(os.Args[1:], cfg)
	if err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		apphttp.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	}

	if cfg.Telegram.APIID == 0 || cfg.Telegram.APIHash == "" {
		logger.Fatal().Msg("reviewer: не указаны TG_API_ID и TG_API_HASH")
	}

	var (
		storage session.Storage
		reports domain.ReportStore
	)
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("reviewer: нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("reviewer: не удалось подготовить схему БД")
		}
		storage = mtproto.NewSessionDB(pg, cfg.MTProto.SessionName)
		reports = pg
	} else {
		storage = mtproto.NewSessionFile(cfg.MTProto.SessionFile)
	}

	var historyStore domain.HistoryStore = history.NewFileStore(cfg.History.File)
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("reviewer: нет подключения к Redis")
		}
		defer client.Close()
		historyStore = history.NewRedisStore(client, cfg.History.RedisKey)
	}

	var notifier domain.Notifier
	if cfg.Bot.Token != "" && cfg.Bot.NotifyChatID != 0 {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("reviewer: не удалось создать бота")
		}
		notifier = notify.NewBot(botAPI, cfg.Bot.NotifyChatID, logger)
	}

	emitter := console.NewEmitter(os.Stdout, !cfg.NoColor)
	prompter := console.NewPrompter(os.Stdin, emitter)

	gateway := mtproto.NewGateway(cfg.Telegram.APIID, cfg.Telegram.APIHash, storage, logger)
	reviewer := review.NewService(
		ingest.NewService(gateway, logger, console.NewProgress(emitter, ""), cfg.Ingest.MaxRecords, cfg.Ingest.ProgressEvery),
		analyze.NewService(logger),
		replicate.NewService(gateway, logger, cfg.Replicate.ScratchDir, cfg.Replicate.ItemDelay, cfg.Replicate.ItemTimeout),
		reports,
		notifier,
		logger,
	)

	a := &app{
		gateway:  gateway,
		history:  historyStore,
		review:   reviewer,
		display:  console.NewDisplay(emitter),
		prompter: prompter,
		log:      logger,
		opts:     opts,
	}

	creds := mtproto.Credentials{
		Phone:    cfg.Telegram.Phone,
		Password: cfg.Telegram.Password,
		Code: func(ctx context.Context) (string, error) {
			return prompter.Ask(ctx, "請輸入 Telegram 傳送的驗證碼:")
		},
	}
	if err := gateway.Run(ctx, creds, a.run); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("reviewer: прервано оператором")
			return
		}
		logger.Fatal().Err(err).Msg("reviewer: работа завершилась ошибкой")
	}
}
