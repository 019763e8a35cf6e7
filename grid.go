package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/cellbuf"
	"github.com/cursork/glimpsh/focus"
)

// gaugeCells is the width of the dwell gauge drawn in a candidate's title.
const gaugeCells = 5

// PaneGrid is the in-process focus target: rows×cols bordered tiles laid
// out over a screen area. Gaze and manual focus both land here through
// focus.Engine.
type PaneGrid struct {
	focus.Grid

	tiles   []*Pane
	scratch []*ScratchPane
	focused int

	x, y, w, h int
}

// NewPaneGrid creates a grid of scratch panes, each titled with label.
func NewPaneGrid(rows, cols int, label string) (*PaneGrid, error) {
	g, err := focus.NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	pg := &PaneGrid{Grid: g, focused: focus.NoPane}
	for i := 0; i < g.PaneCount(); i++ {
		sp := NewScratchPane(i, label)
		pg.scratch = append(pg.scratch, sp)
		pg.tiles = append(pg.tiles, &Pane{ID: fmt.Sprintf("pane-%d", i), Content: sp})
	}
	return pg, nil
}

// FocusPane implements focus.Target.
func (g *PaneGrid) FocusPane(index int) {
	if index < 0 || index >= len(g.tiles) {
		return
	}
	if g.focused >= 0 {
		g.tiles[g.focused].Focused = false
		g.scratch[g.focused].focused = false
	}
	g.focused = index
	g.tiles[index].Focused = true
	g.scratch[index].focused = true
}

// Focused returns the focused tile, or focus.NoPane.
func (g *PaneGrid) Focused() int { return g.focused }

// Tile returns the pane at index.
func (g *PaneGrid) Tile(index int) *Pane {
	if index < 0 || index >= len(g.tiles) {
		return nil
	}
	return g.tiles[index]
}

// Scratch returns the content of the pane at index.
func (g *PaneGrid) Scratch(index int) *ScratchPane {
	if index < 0 || index >= len(g.scratch) {
		return nil
	}
	return g.scratch[index]
}

// Layout places the tiles over the w×h area at (x, y). Column c starts at
// ceil(c*w/cols), so a cell at offset dx belongs to column floor(dx*cols/w),
// the same split focus.Resolve uses for gaze.
func (g *PaneGrid) Layout(x, y, w, h int) {
	g.x, g.y, g.w, g.h = x, y, w, h
	rows, cols := g.Rows(), g.Cols()
	for i, t := range g.tiles {
		row, col := g.Cell(i)
		left, right := split(col, cols, w), split(col+1, cols, w)
		top, bottom := split(row, rows, h), split(row+1, rows, h)
		t.X, t.Y = x+left, y+top
		t.Width, t.Height = right-left, bottom-top
	}
}

// split returns the start offset of band n of count over size cells.
func split(n, count, size int) int {
	return (n*size + count - 1) / count
}

// Area returns the screen rectangle the grid covers.
func (g *PaneGrid) Area() (x, y, w, h int) { return g.x, g.y, g.w, g.h }

// TileAt returns the tile under the screen cell (x, y).
func (g *PaneGrid) TileAt(x, y int) (int, bool) {
	dx, dy := x-g.x, y-g.y
	if dx < 0 || dy < 0 || dx >= g.w || dy >= g.h {
		return focus.NoPane, false
	}
	return focus.CellIndex(dy*g.Rows()/g.h, dx*g.Cols()/g.w, g.Rows(), g.Cols(), g.PaneCount())
}

// SetProgress shows a dwell gauge on the candidate pane and clears it
// everywhere else.
func (g *PaneGrid) SetProgress(candidate int, fraction float64) {
	for i, t := range g.tiles {
		t.Badge = ""
		if i == candidate {
			t.Badge = gauge(fraction)
		}
	}
}

func gauge(fraction float64) string {
	filled := int(fraction*gaugeCells + 0.5)
	filled = clamp(filled, 0, gaugeCells)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", gaugeCells-filled)
}

// HandleKey types into the focused pane.
func (g *PaneGrid) HandleKey(msg tea.KeyMsg) bool {
	if g.focused < 0 {
		return false
	}
	return g.scratch[g.focused].HandleKey(msg)
}

// Draw paints every tile into buf.
func (g *PaneGrid) Draw(buf *cellbuf.Buffer) {
	for _, t := range g.tiles {
		if t.Width > 0 && t.Height > 0 {
			t.Draw(buf)
		}
	}
}

// ScratchPane is the content of a grid tile: a line buffer that echoes
// what is typed while the tile has focus.
type ScratchPane struct {
	index   int
	label   string
	lines   []string
	focused bool
}

// NewScratchPane creates the content for tile index.
func NewScratchPane(index int, label string) *ScratchPane {
	return &ScratchPane{index: index, label: label, lines: []string{""}}
}

func (s *ScratchPane) Title() string {
	return fmt.Sprintf("%d: %s", s.index+1, s.label)
}

// Lines returns the typed lines, the last one being the line in progress.
func (s *ScratchPane) Lines() []string {
	return append([]string(nil), s.lines...)
}

func (s *ScratchPane) Render(w, h int) string {
	start := max(len(s.lines)-h, 0)
	out := make([]string, 0, h)
	for i := start; i < len(s.lines); i++ {
		line := s.lines[i]
		if s.focused && i == len(s.lines)-1 {
			// Keep the cursor on screen for long lines
			if r := []rune(line); len(r) >= w {
				line = string(r[len(r)-w+1:])
			}
			line += cursorStyle.Render(" ")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (s *ScratchPane) HandleKey(msg tea.KeyMsg) bool {
	last := len(s.lines) - 1
	switch msg.Type {
	case tea.KeyEnter:
		s.lines = append(s.lines, "")
	case tea.KeyBackspace:
		if r := []rune(s.lines[last]); len(r) > 0 {
			s.lines[last] = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		s.lines[last] += " "
	case tea.KeyRunes:
		s.lines[last] += string(msg.Runes)
	default:
		return false
	}
	return true
}

func (s *ScratchPane) HandleMouse(x, y int, msg tea.MouseMsg) bool {
	return false
}
