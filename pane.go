package main

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/cellbuf"
)

// PaneContent is what a pane shows inside its border.
type PaneContent interface {
	// Render draws the content into a w by h area.
	Render(w, h int) string

	// HandleKey reports whether the key was consumed.
	HandleKey(msg tea.KeyMsg) bool

	// HandleMouse gets coordinates relative to the content area.
	HandleMouse(x, y int, msg tea.MouseMsg) bool

	Title() string
}

// Region is the part of a pane under a screen cell.
type Region int

const (
	RegionOutside Region = iota
	RegionTitle
	RegionBody
	RegionEdge
	RegionGrip // bottom-right corner, drags to resize
)

const (
	paneMinW = 20
	paneMinH = 5
)

type dragState struct {
	resize bool
	dx, dy int // grab point relative to the pane origin
}

// Pane is a bordered box: a tile of the grid or a floating overlay.
type Pane struct {
	ID            string
	X, Y          int
	Width, Height int // including the border
	Focused       bool
	Content       PaneContent

	// Badge is drawn at the right end of the title bar.
	Badge string

	drag *dragState
}

func NewPane(id string, content PaneContent, x, y, w, h int) *Pane {
	return &Pane{ID: id, X: x, Y: y, Width: w, Height: h, Content: content}
}

// Contains reports whether the screen cell (x, y) lies on the pane.
func (p *Pane) Contains(x, y int) bool {
	return x >= p.X && x < p.X+p.Width && y >= p.Y && y < p.Y+p.Height
}

func (p *Pane) Region(x, y int) Region {
	if !p.Contains(x, y) {
		return RegionOutside
	}
	rx, ry := x-p.X, y-p.Y
	right, bottom := rx == p.Width-1, ry == p.Height-1
	switch {
	case right && bottom:
		return RegionGrip
	case ry == 0:
		return RegionTitle
	case bottom || right || rx == 0:
		return RegionEdge
	}
	return RegionBody
}

// BeginDrag starts moving the pane from its title bar or resizing it from
// the grip. Presses anywhere else do nothing.
func (p *Pane) BeginDrag(x, y int) bool {
	switch p.Region(x, y) {
	case RegionTitle:
		p.drag = &dragState{dx: x - p.X, dy: y - p.Y}
	case RegionGrip:
		p.drag = &dragState{resize: true}
	default:
		return false
	}
	return true
}

// DragTo follows the mouse, keeping the title bar on a screen of sw by sh.
func (p *Pane) DragTo(x, y, sw, sh int) {
	switch {
	case p.drag == nil:
	case p.drag.resize:
		p.Width = max(x-p.X+1, paneMinW)
		p.Height = max(y-p.Y+1, paneMinH)
	default:
		p.X = clamp(x-p.drag.dx, 0, sw-5)
		p.Y = clamp(y-p.drag.dy, 0, sh-1)
	}
}

func (p *Pane) EndDrag() { p.drag = nil }

func (p *Pane) Dragging() bool { return p.drag != nil }

// Render draws the border and content. Focused panes get a double border.
func (p *Pane) Render() string {
	b := lipgloss.NormalBorder()
	if p.Focused {
		b = lipgloss.DoubleBorder()
	}
	style := borderStyle(p.Focused)
	cw, ch := max(p.Width-2, 1), max(p.Height-2, 1)

	var body []string
	title := ""
	if p.Content != nil {
		body = strings.Split(p.Content.Render(cw, ch), "\n")
		title = p.Content.Title()
	}

	out := make([]string, 0, ch+2)
	out = append(out, style.Render(b.TopLeft+titleBar(title, p.Badge, cw, b.Top)+b.TopRight))
	left, right := style.Render(b.Left), style.Render(b.Right)
	for i := range ch {
		line := ""
		if i < len(body) {
			line = body[i]
		}
		out = append(out, left+fit(line, cw)+right)
	}
	out = append(out, style.Render(b.BottomLeft+strings.Repeat(b.Bottom, cw)+b.BottomRight))
	return strings.Join(out, "\n")
}

// titleBar lays out " title ─── badge " across w cells of fill. The badge
// is dropped first when space runs out, then the title is cut.
func titleBar(title, badge string, w int, fill string) string {
	if badge != "" && ansi.StringWidth(badge)+2 > w {
		badge = ""
	}
	tail := ""
	if badge != "" {
		tail = badge + " "
	}
	room := w - 2 - ansi.StringWidth(tail)
	if room < 0 {
		return strings.Repeat(fill, w)
	}
	title = ansi.Truncate(title, room, "")
	gap := room - ansi.StringWidth(title)
	return " " + title + " " + strings.Repeat(fill, gap) + tail
}

// fit pads or truncates s to exactly w cells, keeping ANSI styling intact.
func fit(s string, w int) string {
	if ansi.StringWidth(s) > w {
		s = ansi.Truncate(s, w, "")
	}
	return s + strings.Repeat(" ", w-ansi.StringWidth(s))
}

// Draw paints the pane into buf at its position, clipped to the buffer.
func (p *Pane) Draw(buf *cellbuf.Buffer) {
	rect := cellbuf.Rect(p.X, p.Y, p.Width, p.Height)
	if rect.Intersect(buf.Bounds()).Empty() {
		return
	}
	cellbuf.SetContentRect(buf, p.Render(), rect)
}

// Overlays is the stack of floating panes over the grid, topmost last.
// At most one of them has keyboard focus; with none focused keys go to
// the grid.
type Overlays struct {
	stack   []*Pane
	focused *Pane
	w, h    int
}

func NewOverlays(w, h int) *Overlays {
	return &Overlays{w: w, h: h}
}

// Open pushes p on top and focuses it.
func (o *Overlays) Open(p *Pane) {
	o.stack = append(o.stack, p)
	o.Focus(p.ID)
}

// Close removes a pane. Focus passes to the new top pane.
func (o *Overlays) Close(id string) {
	i := o.index(id)
	if i < 0 {
		return
	}
	closed := o.stack[i]
	o.stack = slices.Delete(o.stack, i, i+1)
	if o.focused == closed {
		o.focused = nil
		if n := len(o.stack); n > 0 {
			o.Focus(o.stack[n-1].ID)
		}
	}
}

func (o *Overlays) index(id string) int {
	return slices.IndexFunc(o.stack, func(p *Pane) bool { return p.ID == id })
}

func (o *Overlays) Get(id string) *Pane {
	if i := o.index(id); i >= 0 {
		return o.stack[i]
	}
	return nil
}

// Focus gives a pane the keyboard and raises it.
func (o *Overlays) Focus(id string) {
	i := o.index(id)
	if i < 0 {
		return
	}
	p := o.stack[i]
	o.Blur()
	p.Focused = true
	o.focused = p
	o.stack = append(slices.Delete(o.stack, i, i+1), p)
}

// Blur leaves every overlay open but unfocused, so keys reach the grid.
func (o *Overlays) Blur() {
	if o.focused != nil {
		o.focused.Focused = false
		o.focused = nil
	}
}

// Cycle focuses the bottom pane, which raises it, so repeated calls visit
// every pane in turn.
func (o *Overlays) Cycle() {
	if len(o.stack) > 0 {
		o.Focus(o.stack[0].ID)
	}
}

func (o *Overlays) Focused() *Pane { return o.focused }

// Dragging returns the pane being dragged, if any.
func (o *Overlays) Dragging() *Pane {
	for _, p := range o.stack {
		if p.Dragging() {
			return p
		}
	}
	return nil
}

// At returns the topmost pane covering the cell.
func (o *Overlays) At(x, y int) *Pane {
	for i := len(o.stack) - 1; i >= 0; i-- {
		if o.stack[i].Contains(x, y) {
			return o.stack[i]
		}
	}
	return nil
}

// Resize pulls panes back on screen after the terminal shrinks.
func (o *Overlays) Resize(w, h int) {
	o.w, o.h = w, h
	for _, p := range o.stack {
		p.X = min(p.X, w-5)
		p.Y = min(p.Y, h-1)
	}
}

func (o *Overlays) Empty() bool { return len(o.stack) == 0 }

// Draw composites the panes over buf, lowest first.
func (o *Overlays) Draw(buf *cellbuf.Buffer) {
	for _, p := range o.stack {
		p.Draw(buf)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
