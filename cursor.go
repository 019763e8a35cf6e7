package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/cellbuf"
)

const cursorInterval = 120 * time.Millisecond

// Breathing pulse, one frame per tick
var pulseFrames = []rune("·•●◉◎○◎◉●•·")

// 256-colour palette indices cycling with the pulse
var pulseColors = []ansi.IndexedColor{48, 50, 45, 39, 141, 207, 204, 203, 208, 220, 118}

// cursorTickMsg advances the gaze cursor animation.
type cursorTickMsg struct{}

func cursorTick() tea.Cmd {
	return tea.Tick(cursorInterval, func(time.Time) tea.Msg {
		return cursorTickMsg{}
	})
}

// GazeCursor marks where the user is looking, drawn over everything else.
type GazeCursor struct {
	X, Y    int // screen cell
	Visible bool
	frame   int
}

// Advance steps the animation; hidden cursors hold their frame.
func (c *GazeCursor) Advance() {
	if c.Visible {
		c.frame = (c.frame + 1) % len(pulseFrames)
	}
}

// Glyph returns the current animation frame.
func (c *GazeCursor) Glyph() rune {
	return pulseFrames[c.frame]
}

// Place moves the cursor to (x, y), clamped to the w×h area at (ox, oy).
func (c *GazeCursor) Place(x, y float64, ox, oy, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.X = ox + clamp(int(x), 0, w-1)
	c.Y = oy + clamp(int(y), 0, h-1)
}

// Draw paints the cursor cell into buf.
func (c *GazeCursor) Draw(buf *cellbuf.Buffer) {
	if !c.Visible {
		return
	}
	cell := cellbuf.NewCell(c.Glyph())
	cell.Style.Bold(true)
	if colorEnabled {
		cell.Style.Foreground(pulseColors[c.frame%len(pulseColors)])
	}
	buf.SetCell(c.X, c.Y, cell)
}
