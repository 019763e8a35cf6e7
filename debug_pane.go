package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/cursork/glimpsh/logger"
)

var (
	warnLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// DebugPane tails the session log. It follows new lines until the user
// scrolls up, and picks up following again at the bottom.
type DebugPane struct {
	vp   viewport.Model
	ring *logger.Ring
	seen int // ring total at the last render
}

func NewDebugPane(ring *logger.Ring) *DebugPane {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	return &DebugPane{vp: vp, ring: ring}
}

func (d *DebugPane) Title() string {
	if d.following() {
		return "debug"
	}
	return "debug (paused)"
}

func (d *DebugPane) following() bool {
	return d.seen == 0 || d.vp.AtBottom()
}

func (d *DebugPane) Render(w, h int) string {
	follow := d.following()
	d.vp.Width, d.vp.Height = w, h

	lines := d.ring.Lines()
	for i, l := range lines {
		if !colorEnabled {
			break
		}
		switch {
		case strings.Contains(l, "level=ERROR"):
			lines[i] = errorLineStyle.Render(l)
		case strings.Contains(l, "level=WARN"):
			lines[i] = warnLineStyle.Render(l)
		}
	}
	d.vp.SetContent(strings.Join(lines, "\n"))

	if total := d.ring.Total(); total != d.seen {
		d.seen = total
		if follow {
			d.vp.GotoBottom()
		}
	}
	return d.vp.View()
}

func (d *DebugPane) HandleKey(msg tea.KeyMsg) bool {
	if msg.String() == "G" {
		d.vp.GotoBottom()
		return true
	}
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return cmd != nil
}

func (d *DebugPane) HandleMouse(x, y int, msg tea.MouseMsg) bool {
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return cmd != nil
}
