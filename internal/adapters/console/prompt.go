package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoSelection: оператор ничего не выбрал.
var ErrNoSelection = errors.New("no conversation selected")

// Prompter читает ответы оператора построчно.
type Prompter struct {
	in *bufio.Reader
	e  Emitter
}

// NewPrompter создаёт чтение ответов из in.
func NewPrompter(in io.Reader, e Emitter) *Prompter {
	return &Prompter{in: bufio.NewReader(in), e: e}
}

// Ask печатает вопрос и возвращает ответ без пробелов по краям.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.e.Emit(ToneAccent, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm спрашивает «да/нет» до получения понятного ответа.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		answer, err := p.Ask(ctx, question+" (y/n)")
		if err != nil {
			return false, err
		}
		if yes, ok := ParseYesNo(answer); ok {
			return yes, nil
		}
		p.e.Emit(ToneError, "請輸入 y 或 n")
	}
}

// ParseYesNo распознаёт y/yes/是 и n/no/否.
func ParseYesNo(answer string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "是":
		return true, true
	case "n", "no", "否":
		return false, true
	default:
		return false, false
	}
}

// SelectIndexes спрашивает номера из списка длины n, например «1,3 5» или «all».
// Возвращает индексы с нуля в порядке ввода без повторов.
func (p *Prompter) SelectIndexes(ctx context.Context, n int) ([]int, error) {
	for {
		answer, err := p.Ask(ctx, "請輸入要分析的群組編號 (以逗號分隔, all 表示全部):")
		if err != nil {
			return nil, err
		}
		idx, err := ParseSelection(answer, n)
		if err == nil {
			return idx, nil
		}
		p.e.Emit(ToneError, fmt.Sprintf("無效的選擇: %v", err))
	}
}

// ParseSelection разбирает ввод номеров.
func ParseSelection(answer string, n int) ([]int, error) {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "all") {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == '，' || r == ' '
	})
	if len(fields) == 0 {
		return nil, ErrNoSelection
	}
	seen := make(map[int]struct{}, len(fields))
	idx := make([]int, 0, len(fields))
	for _, f := range fields {
		num, err := strconv.Atoi(f)
		if err != nil || num < 1 || num > n {
			return nil, fmt.Errorf("номер %q вне диапазона 1..%d", f, n)
		}
		if _, dup := seen[num]; dup {
			continue
		}
		seen[num] = struct{}{}
		idx = append(idx, num-1)
	}
	return idx, nil
}
