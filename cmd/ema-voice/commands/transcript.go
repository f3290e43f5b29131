package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
)

const defaultTranscriptWidth = 80

var (
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	errorStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555"))
)

// transcriptPrinter writes the conversation as it happens. It is used as a
// session event handler, so it only formats and writes.
type transcriptPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

func newTranscriptPrinter(out io.Writer, width int) *transcriptPrinter {
	if width <= 0 {
		width = defaultTranscriptWidth
	}
	return &transcriptPrinter{out: out, width: width}
}

func (p *transcriptPrinter) handle(event events.Event) {
	switch e := event.(type) {
	case events.UserTranscriptFinal:
		p.line(userLabelStyle, "you", e.Transcript)
	case events.AssistantResponseFinal:
		p.line(assistantLabelStyle, "ema", e.Response)
	case events.AssistantSpeechSynthesized:
		if e.LocalFallback {
			p.status("speaking with the local voice")
		}
	case events.AssistantSpeechFailed:
		p.failure("could not speak the reply", e.Err)
	case events.AssistantResponseFailed:
		p.failure("could not get a reply", e.Err)
	case events.AssistantPlaybackInterrupted:
		p.status("interrupted")
	case events.UserCaptureFailed:
		p.status("recognition dropped (" + e.FailureKind + "), reconnecting")
	case events.SessionFailed:
		p.failure("session failed: "+e.ErrorKind, e.Err)
	}
}

// summary reports how many exchanges a finished conversation had.
func (p *transcriptPrinter) summary(history conversations.HistoryView) {
	var user, assistant int
	for _, turn := range history.History() {
		switch turn.Speaker {
		case llms.SpeakerUser:
			user++
		case llms.SpeakerAssistant:
			assistant++
		}
	}
	p.status(fmt.Sprintf("call ended: %d said, %d answered", user, assistant))
}

func (p *transcriptPrinter) line(style lipgloss.Style, speaker, text string) {
	label := speaker + ":"
	indent := strings.Repeat(" ", len(label)+1)
	wrapped := wordwrap.String(text, p.width-len(indent))
	wrapped = strings.ReplaceAll(wrapped, "\n", "\n"+indent)

	p.write(style.Render(label) + " " + wrapped)
}

func (p *transcriptPrinter) status(text string) {
	p.write(statusStyle.Render("· " + text))
}

func (p *transcriptPrinter) failure(text string, err error) {
	if err != nil {
		text += ": " + err.Error()
	}
	p.write(errorStyle.Render("! ") + wordwrap.String(text, p.width-2))
}

func (p *transcriptPrinter) write(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}
