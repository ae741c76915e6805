package domain

import (
	"errors"
	"time"
)

// ErrInvalidWindow возвращается, если начало окна позже конца.
var ErrInvalidWindow = errors.New("некорректное временное окно")

// TimeWindow — закрытый интервал [Start, End] в UTC.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// LastDays строит окно now−days·24h .. now.
func LastDays(now time.Time, days int) (TimeWindow, error) {
	if days <= 0 {
		return TimeWindow{}, ErrInvalidWindow
	}
	end := now.UTC()
	return TimeWindow{Start: end.Add(-time.Duration(days) * 24 * time.Hour), End: end}, nil
}

// Between строит явное окно. Время без зоны считается UTC.
func Between(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start.UTC(), End: end.UTC()}
	if w.Start.After(w.End) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return w, nil
}

// Contains проверяет попадание момента в окно, обе границы включены.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days возвращает длину окна в целых сутках.
func (w TimeWindow) Days() int {
	return int(w.End.Sub(w.Start) / (24 * time.Hour))
}
