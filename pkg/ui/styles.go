// Package ui holds the terminal styling used by command output.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles groups the renderers used for status and plan output.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Emphasis lipgloss.Style
}

// NewStyles returns color styles when stdout is a terminal and plain
// passthrough styles otherwise.
func NewStyles() Styles {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		plain := lipgloss.NewStyle()
		return Styles{
			Header:   plain,
			Success:  plain,
			Warning:  plain,
			Error:    plain,
			Muted:    plain,
			Emphasis: plain,
		}
	}
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Emphasis: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	}
}
