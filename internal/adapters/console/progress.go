package console

import (
	"fmt"
	"time"

	"tg-reviewer/internal/domain"
)

// Progress показывает счётчик загруженных сообщений.
type Progress struct {
	emitter Emitter
	prefix  string
}

var _ domain.ProgressObserver = (*Progress)(nil)

// NewProgress создаёт счётчик. prefix печатается перед числом.
func NewProgress(emitter Emitter, prefix string) *Progress {
	return &Progress{emitter: emitter, prefix: prefix}
}

// Progress печатает промежуточное значение.
func (p *Progress) Progress(fetched int) {
	p.emitter.Emit(ToneMuted, p.line(fmt.Sprintf("已取得 %d 則訊息...", fetched)))
}

// Done печатает итог загрузки.
func (p *Progress) Done(fetched int, elapsed time.Duration) {
	p.emitter.Emit(ToneSuccess, p.line(fmt.Sprintf("已取得 %d 則訊息 (%.1f 秒)", fetched, elapsed.Seconds())))
}

func (p *Progress) line(text string) string {
	if p.prefix == "" {
		return text
	}
	return p.prefix + " " + text
}
