package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles colour build output. Each writer gets its own renderer so colour
// is only emitted to terminals.
type styles struct {
	errLabel lipgloss.Style
	ok       lipgloss.Style
	failed   lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(out, errOut io.Writer) styles {
	ro := lipgloss.NewRenderer(out)
	re := lipgloss.NewRenderer(errOut)
	return styles{
		errLabel: re.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		ok:       ro.NewStyle().Foreground(lipgloss.Color("10")),
		failed:   ro.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:    ro.NewStyle().Faint(true),
	}
}
