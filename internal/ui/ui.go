// Package ui renders command results and mind map trees for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#10b981")
	colorWarning = lipgloss.Color("#f4d03f")
	colorError   = lipgloss.Color("#e74c3c")
	colorMuted   = lipgloss.Color("#6b7280")
	colorTitle   = lipgloss.Color("#8b5cf6")
)

// UI writes styled output. With color disabled every style renders plain text.
type UI struct {
	writer   io.Writer
	useColor bool
	renderer *lipgloss.Renderer

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	title   lipgloss.Style
}

func NewUI(w io.Writer, useColor bool) *UI {
	r := lipgloss.NewRenderer(w)
	return &UI{
		writer:   w,
		useColor: useColor,
		renderer: r,
		success:  r.NewStyle().Foreground(colorSuccess),
		warning:  r.NewStyle().Foreground(colorWarning),
		failure:  r.NewStyle().Foreground(colorError).Bold(true),
		muted:    r.NewStyle().Foreground(colorMuted),
		title:    r.NewStyle().Foreground(colorTitle).Bold(true),
	}
}

func (u *UI) render(style lipgloss.Style, s string) string {
	if !u.useColor {
		return s
	}
	return style.Render(s)
}

// Message prints a plain formatted line.
func (u *UI) Message(format string, args ...interface{}) {
	fmt.Fprintln(u.writer, fmt.Sprintf(format, args...))
}

func (u *UI) Success(format string, args ...interface{}) {
	fmt.Fprintln(u.writer, u.render(u.success, fmt.Sprintf(format, args...)))
}

func (u *UI) Warning(format string, args ...interface{}) {
	fmt.Fprintln(u.writer, u.render(u.warning, fmt.Sprintf(format, args...)))
}

func (u *UI) Error(format string, args ...interface{}) {
	fmt.Fprintln(u.writer, u.render(u.failure, "Error: "+fmt.Sprintf(format, args...)))
}

// Title prints a section heading.
func (u *UI) Title(s string) {
	fmt.Fprintln(u.writer, u.render(u.title, s))
}

// Table prints rows with left-aligned columns.
func (u *UI) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c + strings.Repeat(" ", widths[i]-len(c))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	fmt.Fprintln(u.writer, u.render(u.muted, line(header)))
	for _, row := range rows {
		fmt.Fprintln(u.writer, line(row))
	}
}
