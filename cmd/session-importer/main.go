package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"tg-reviewer/internal/adapters/mtproto"
	"tg-reviewer/internal/adapters/repo"
	"tg-reviewer/internal/infra/config"
	"tg-reviewer/internal/infra/db"
)

func main() {
	var (
		filePath    string
		sessionName string
	)
	flag.StringVar(&filePath, "file", "", "Path to session file: gotd JSON, Telethon string/JSON or Telethon .session (SQLite)")
	flag.StringVar(&sessionName, "name", "", "Name of the MTProto session (defaults to MTPROTO_SESSION_NAME)")
	flag.Parse()

	if filePath == "" {
		log.Fatal().Msg("session-importer: path to session file is required (-file)")
	}

	cfg := config.Load()
	if sessionName == "" {
		sessionName = cfg.MTProto.SessionName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionData, converted, err := readSession(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: unsupported MTProto session format")
	}

	if cfg.PGDSN == "" {
		storage := mtproto.NewSessionFile(cfg.MTProto.SessionFile)
		if err := storage.StoreSession(ctx, sessionData); err != nil {
			log.Fatal().Err(err).Msg("session-importer: failed to write session file")
		}
		report(converted)
		fmt.Printf("Stored MTProto session (%d bytes) in %s\n", len(sessionData), cfg.MTProto.SessionFile)
		return
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to connect to database")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to prepare database schema")
	}
	if err := repoAdapter.StoreMTProtoSession(ctx, sessionName, sessionData); err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to store session in database")
	}

	report(converted)
	fmt.Printf("Stored MTProto session %q (%d bytes) in database\n", sessionName, len(sessionData))
}

// readSession читает файл и приводит его к формату gotd.
func readSession(ctx context.Context, path string) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if mtproto.IsSQLiteSession(raw) {
		data, err := mtproto.ConvertSQLiteSession(ctx, path)
		return data, true, err
	}
	return mtproto.NormalizeSessionBytes(raw)
}

func report(converted bool) {
	if converted {
		fmt.Println("Session was converted to gotd JSON format before storing")
	}
}
