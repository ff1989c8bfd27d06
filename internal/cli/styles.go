package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type styles struct {
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Hint       lipgloss.Style
	FilePath   lipgloss.Style
	Location   lipgloss.Style
	RuleID     lipgloss.Style
	Message    lipgloss.Style
	Suggestion lipgloss.Style
	Markup     lipgloss.Style
	Dim        lipgloss.Style
	Success    lipgloss.Style
	Failure    lipgloss.Style
}

func newStyles(colorEnabled bool) *styles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return &styles{plain, plain, plain, plain, plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return &styles{
		Warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		Info:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		Hint:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
		FilePath:   lipgloss.NewStyle().Bold(true),
		Location:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		RuleID:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Message:    lipgloss.NewStyle(),
		Suggestion: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Italic(true),
		Markup:     lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Failure:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// colorEnabled resolves the --color flag against the output.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (s *styles) severity(sev *protocol.DiagnosticSeverity) string {
	if sev == nil {
		return s.Info.Render("info")
	}
	switch *sev {
	case protocol.DiagnosticSeverityError:
		return s.Failure.Render("error")
	case protocol.DiagnosticSeverityWarning:
		return s.Warning.Render("warning")
	case protocol.DiagnosticSeverityHint:
		return s.Hint.Render("hint")
	}
	return s.Info.Render("info")
}
