package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Tone задаёт оформление строки.
type Tone int

const (
	ToneText Tone = iota
	ToneTitle
	ToneAccent
	ToneValue
	ToneMuted
	ToneSuccess
	ToneError
	ToneQuote
)

// Emitter выводит одну строку в заданном оформлении.
type Emitter interface {
	Emit(tone Tone, text string)
}

// NewEmitter выбирает реализацию при создании: цветную или простую.
func NewEmitter(out io.Writer, color bool) Emitter {
	if !color {
		return Plain{out: out}
	}
	return newStyled(out)
}

// Plain пишет текст без оформления.
type Plain struct {
	out io.Writer
}

// Emit печатает строку как есть.
func (p Plain) Emit(_ Tone, text string) {
	fmt.Fprintln(p.out, text)
}

// Styled оформляет строки через lipgloss.
type Styled struct {
	out    io.Writer
	styles map[Tone]lipgloss.Style
}

func newStyled(out io.Writer) *Styled {
	r := lipgloss.NewRenderer(out)
	return &Styled{
		out: out,
		styles: map[Tone]lipgloss.Style{
			ToneText:    r.NewStyle(),
			ToneTitle:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("51")),
			ToneAccent:  r.NewStyle().Foreground(lipgloss.Color("213")),
			ToneValue:   r.NewStyle().Foreground(lipgloss.Color("220")),
			ToneMuted:   r.NewStyle().Foreground(lipgloss.Color("244")),
			ToneSuccess: r.NewStyle().Foreground(lipgloss.Color("42")),
			ToneError:   r.NewStyle().Foreground(lipgloss.Color("196")),
			ToneQuote:   r.NewStyle().Foreground(lipgloss.Color("39")),
		},
	}
}

// Emit печатает строку в стиле tone.
func (s *Styled) Emit(tone Tone, text string) {
	style, ok := s.styles[tone]
	if !ok {
		style = s.styles[ToneText]
	}
	fmt.Fprintln(s.out, style.Render(text))
}
