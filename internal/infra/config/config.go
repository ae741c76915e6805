package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию утилиты.
type AppConfig struct {
	AppEnv  string `envconfig:"APP_ENV" default:"dev"`
	NoColor bool   `envconfig:"NO_COLOR" default:"false"`

	Telegram struct {
		APIID    int    `envconfig:"TG_API_ID"`
		APIHash  string `envconfig:"TG_API_HASH"`
		Phone    string `envconfig:"TG_PHONE"`
		Password string `envconfig:"TG_PASSWORD"`
	} `envconfig:""`

	MTProto struct {
		SessionFile string `envconfig:"MTPROTO_SESSION_FILE" default:"telegram_reviewer_session.json"`
		SessionName string `envconfig:"MTPROTO_SESSION_NAME" default:"default"`
	} `envconfig:""`

	Bot struct {
		Token        string `envconfig:"TG_BOT_TOKEN"`
		NotifyChatID int64  `envconfig:"NOTIFY_CHAT_ID"`
	} `envconfig:""`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	History struct {
		File     string `envconfig:"HISTORY_FILE" default:"telegram_reviewer_history.json"`
		RedisKey string `envconfig:"HISTORY_KEY" default:"tg_reviewer:history"`
	} `envconfig:""`

	Defaults struct {
		Days  int `envconfig:"DEFAULT_DAYS" default:"30"`
		Limit int `envconfig:"DEFAULT_MESSAGE_LIMIT" default:"1000"`
		Top   int `envconfig:"DEFAULT_TOP_COUNT" default:"5"`
	} `envconfig:""`

	Ingest struct {
		MaxRecords    int `envconfig:"INGEST_MAX_RECORDS" default:"100000"`
		ProgressEvery int `envconfig:"INGEST_PROGRESS_EVERY" default:"10"`
	} `envconfig:""`

	Replicate struct {
		ScratchDir  string        `envconfig:"SCRATCH_DIR" default:"results/media"`
		ItemDelay   time.Duration `envconfig:"ITEM_DELAY" default:"1s"`
		ItemTimeout time.Duration `envconfig:"ITEM_TIMEOUT" default:"2m"`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
