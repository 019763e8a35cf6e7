package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

// connState is the gaze connection as shown in the status bar.
type connState int

const (
	connDisabled connState = iota
	connConnecting
	connConnected
	connDisconnected
)

func (s connState) String() string {
	switch s {
	case connDisabled:
		return "disabled"
	case connConnecting:
		return "connecting"
	case connConnected:
		return "connected"
	case connDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("connState(%d)", int(s))
}

// statusInfo is everything the status bar shows.
type statusInfo struct {
	Conn      connState
	Server    string
	GazeX     float64
	GazeY     float64
	Focused   int // pane index, or focus.NoPane
	Panes     int
	Candidate int // pane accumulating dwell, or focus.NoPane
	Progress  float64
	Version   string
}

var (
	statusBar   = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("255"))
	statusDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	statusName  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	statusWait  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statusError = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// statusText returns the plain status line, without padding or the version.
func statusText(s statusInfo) (icon, text string) {
	var gaze string
	switch s.Conn {
	case connDisabled:
		icon, gaze = "○", "Gaze: Disabled"
	case connConnected:
		icon, gaze = "●", "Gaze: Connected"
		if s.Server != "" {
			gaze = "Gaze: " + s.Server
		}
	case connConnecting:
		icon, gaze = "◌", "Gaze: Connecting..."
	default:
		icon, gaze = "○", "Gaze: Disconnected"
	}

	parts := []string{gaze}
	if s.Conn == connDisabled {
		parts = append(parts, strings.Repeat(" ", 14))
	} else {
		parts = append(parts, fmt.Sprintf("X: %4.0f  Y: %4.0f", s.GazeX, s.GazeY))
	}

	focused := "-"
	if s.Focused >= 0 {
		focused = fmt.Sprint(s.Focused + 1)
	}
	parts = append(parts, fmt.Sprintf("Pane: %s/%d", focused, s.Panes))
	if s.Candidate >= 0 {
		parts = append(parts, fmt.Sprintf("→%d %s", s.Candidate+1, gauge(s.Progress)))
	}
	return icon, strings.Join(parts, " │ ")
}

// renderStatus renders the one-line status bar w cells wide.
func renderStatus(s statusInfo, w int) string {
	icon, text := statusText(s)
	version := "v" + s.Version

	iconStyle := statusError
	switch s.Conn {
	case connDisabled:
		iconStyle = statusDim
	case connConnected:
		iconStyle = statusOK
	case connConnecting:
		iconStyle = statusWait
	}
	if !colorEnabled {
		iconStyle = lipgloss.NewStyle()
	}

	left := " glimpsh │ " + icon + " " + text
	pad := w - lipgloss.Width(left) - lipgloss.Width(version) - 1
	if pad < 1 {
		// Too narrow: drop the version, then truncate
		return fit(left, w)
	}
	if !colorEnabled {
		return left + strings.Repeat(" ", pad) + version + " "
	}
	line := statusName.Render(" glimpsh ") + statusDim.Render("│ ") +
		iconStyle.Render(icon) + " " + text +
		strings.Repeat(" ", pad) + statusDim.Render(version) + " "
	return statusBar.Render(line)
}
