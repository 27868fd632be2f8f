package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/tkjaer/bootprobe/internal/shared"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#5A67D8")).
				Padding(0, 1)

	ipStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#60A5FA"))

	statsGoodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399"))

	statsBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

const (
	targetWidth  = 21 // "255.255.255.255:65535"
	statusWidth  = 11
	elapsedWidth = 10
)

type cellAlignment int

const (
	alignLeft cellAlignment = iota
	alignRight
)

func formatCell(value string, width int, alignment cellAlignment) string {
	if alignment == alignRight {
		return fmt.Sprintf("%*s", width, value)
	}
	return fmt.Sprintf("%-*s", width, value)
}

// TextOutput prints one line per target followed by the responsive nodes
type TextOutput struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

// NewTextOutput writes to w, coloring the output when styled is set
func NewTextOutput(w io.Writer, styled bool) *TextOutput {
	return &TextOutput{w: w, styled: styled}
}

func (o *TextOutput) render(style lipgloss.Style, s string) string {
	if !o.styled {
		return s
	}
	return style.Render(s)
}

func (o *TextOutput) StartRound(round uint, targets []shared.Target) {
	o.mu.Lock()
	defer o.mu.Unlock()

	title := fmt.Sprintf("Probing %d DHT nodes", len(targets))
	if round > 1 {
		title += fmt.Sprintf(" (round %d)", round)
	}
	fmt.Fprintln(o.w, o.render(titleStyle, title))
}

func (o *TextOutput) CompleteRound(round *shared.Round) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var b strings.Builder
	for _, res := range round.Results {
		b.WriteString(o.formatResult(res))
		b.WriteByte('\n')
	}

	responsive := round.Responsive()
	b.WriteByte('\n')
	b.WriteString(o.render(summaryTitleStyle, fmt.Sprintf("Responsive nodes (%d of %d)", len(responsive), len(round.Results))))
	b.WriteByte('\n')
	if len(responsive) == 0 {
		b.WriteString("  " + o.render(helpStyle, "(none)") + "\n")
	}
	for _, res := range responsive {
		line := "  " + o.render(ipStyle, res.Target.String())
		if res.PTR != "" {
			line += "  " + res.PTR
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprint(o.w, b.String())
}

func (o *TextOutput) formatResult(res shared.Result) string {
	status := formatCell("no response", statusWidth, alignLeft)
	if res.Outcome.Responded {
		status = o.render(statsGoodStyle, formatCell("responded", statusWidth, alignLeft))
	} else {
		status = o.render(statsBadStyle, status)
	}

	line := o.render(ipStyle, formatCell(res.Target.String(), targetWidth, alignLeft)) +
		"  " + status +
		"  " + formatCell(fmt.Sprintf("%.1f ms", res.Outcome.ElapsedMs()), elapsedWidth, alignRight)
	if res.PTR != "" {
		line += "  " + res.PTR
	}
	return line
}

func (o *TextOutput) Close() error {
	return nil
}
