package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the text-mode styles.
type Styles struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
	// TypeName renders woven type names.
	TypeName lipgloss.Style
}

// NewStyles builds styles bound to re. When colored is false every style
// renders plain text.
func NewStyles(re *lipgloss.Renderer, colored bool) *Styles {
	if !colored {
		re.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Bold:     re.NewStyle().Bold(true),
		Muted:    re.NewStyle().Foreground(lipgloss.Color("8")),
		Success:  re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:  re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:    re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:     re.NewStyle().Foreground(lipgloss.Color("12")),
		Header:   re.NewStyle().Bold(true).Underline(true),
		TypeName: re.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	}
}
