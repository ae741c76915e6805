package main

import (
	"errors"
	"testing"
	"time"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/config"
)

func defaults() config.AppConfig {
	var cfg config.AppConfig
	cfg.Defaults.Days = 30
	cfg.Defaults.Limit = 1000
	cfg.Defaults.Top = 5
	return cfg
}

func TestParseOptionsDefaults(t *testing.T) {
	o, err := parseOptions(nil, defaults())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.days != 30 || o.limit != 1000 || o.top != 5 || o.useHistory != "ask" || o.noReplicate {
		t.Fatalf("неожиданные значения по умолчанию: %+v", o)
	}
}

func TestParseOptionsFlags(t *testing.T) {
	o, err := parseOptions([]string{"--days", "7", "--top", "3", "--use-history", "no", "--chat", "-1001, 42", "--no-replicate"}, defaults())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.days != 7 || o.top != 3 || o.useHistory != "no" || !o.noReplicate {
		t.Fatalf("неожиданные значения: %+v", o)
	}
	if len(o.chatIDs) != 2 || o.chatIDs[0] != -1001 || o.chatIDs[1] != 42 {
		t.Fatalf("неожиданные беседы: %v", o.chatIDs)
	}
}

func TestParseOptionsRejectsInvalid(t *testing.T) {
	cases := [][]string{
		{"--use-history", "maybe"},
		{"--top", "0"},
		{"--limit", "-1"},
		{"--days", "0"},
		{"--start-date", "2024-01-01"},
		{"--chat", "abc"},
	}
	for _, args := range cases {
		if _, err := parseOptions(args, defaults()); err == nil {
			t.Fatalf("%v: ожидали ошибку", args)
		}
	}
}

func TestWindowFromStartDate(t *testing.T) {
	o, err := parseOptions([]string{"--start-date", "20240301"}, defaults())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	w, err := o.window(now)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !w.End.Equal(now) {
		t.Fatalf("неожиданное окно: %+v", w)
	}

	future := options{startDate: "20250101"}
	if _, err := future.window(now); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Fatalf("ожидали ErrInvalidWindow, получили %v", err)
	}
}

func TestWindowFromDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	w, err := options{days: 7}.window(now)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.Days() != 7 || !w.End.Equal(now) {
		t.Fatalf("неожиданное окно: %+v", w)
	}
}
