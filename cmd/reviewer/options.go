package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/infra/config"
)

const startDateLayout = "20060102"

var errHelp = flag.ErrHelp

type options struct {
	days        int
	startDate   string
	limit       int
	top         int
	useHistory  string
	chatIDs     []int64
	noReplicate bool
}

// parseOptions разбирает флаги. Значения по умолчанию берутся из конфига.
func parseOptions(args []string, cfg config.AppConfig) (options, error) {
	var (
		o     options
		chats string
	)
	fs := flag.NewFlagSet("reviewer", flag.ContinueOnError)
	fs.IntVar(&o.days, "days", cfg.Defaults.Days, "分析最近幾天的訊息")
	fs.StringVar(&o.startDate, "start-date", "", "起始日期 (YYYYMMDD)，優先於 --days")
	fs.IntVar(&o.limit, "limit", cfg.Defaults.Limit, "分析的訊息數量上限")
	fs.IntVar(&o.top, "top", cfg.Defaults.Top, "顯示和轉發的熱門訊息數量")
	fs.StringVar(&o.useHistory, "use-history", "ask", "是否使用上次選擇的群組 (yes, no, ask)")
	fs.StringVar(&chats, "chat", "", "以逗號分隔的群組 ID，跳過選擇")
	fs.BoolVar(&o.noReplicate, "no-replicate", false, "只分析，不複製到儲存群組")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch o.useHistory {
	case "yes", "no", "ask":
	default:
		return options{}, fmt.Errorf("--use-history: ожидали yes, no или ask, получили %q", o.useHistory)
	}
	if o.limit < 0 {
		return options{}, errors.New("--limit не может быть отрицательным")
	}
	if o.top <= 0 {
		return options{}, errors.New("--top должен быть положительным")
	}
	if o.startDate == "" && o.days <= 0 {
		return options{}, errors.New("--days должен быть положительным")
	}
	if o.startDate != "" {
		if _, err := time.Parse(startDateLayout, o.startDate); err != nil {
			return options{}, fmt.Errorf("--start-date: ожидали YYYYMMDD: %w", err)
		}
	}
	ids, err := parseChatIDs(chats)
	if err != nil {
		return options{}, err
	}
	o.chatIDs = ids
	return o, nil
}

// window строит окно анализа: от --start-date или за последние --days суток.
func (o options) window(now time.Time) (domain.TimeWindow, error) {
	if o.startDate == "" {
		return domain.LastDays(now, o.days)
	}
	start, err := time.Parse(startDateLayout, o.startDate)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	return domain.Between(start, now)
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--chat: некорректный идентификатор %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
