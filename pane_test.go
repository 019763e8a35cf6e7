package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

type textContent string

func (t textContent) Render(w, h int) string                { return string(t) }
func (t textContent) HandleKey(tea.KeyMsg) bool               { return false }
func (t textContent) HandleMouse(int, int, tea.MouseMsg) bool { return false }
func (t textContent) Title() string                           { return "note" }

func TestPaneRegion(t *testing.T) {
	p := NewPane("a", nil, 10, 5, 20, 6)
	tests := []struct {
		x, y int
		want Region
	}{
		{9, 5, RegionOutside},
		{15, 5, RegionTitle},
		{15, 7, RegionBody},
		{10, 7, RegionEdge},
		{15, 10, RegionEdge},
		{29, 10, RegionGrip},
		{30, 10, RegionOutside},
	}
	for _, tt := range tests {
		if got := p.Region(tt.x, tt.y); got != tt.want {
			t.Errorf("Region(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestPaneDrag(t *testing.T) {
	p := NewPane("a", nil, 10, 5, 20, 6)

	if p.BeginDrag(15, 7) {
		t.Fatal("drag started from the body")
	}
	if !p.BeginDrag(12, 5) {
		t.Fatal("title bar did not start a move")
	}
	p.DragTo(32, 8, 80, 24)
	if p.X != 30 || p.Y != 8 {
		t.Errorf("moved to %d,%d, want 30,8", p.X, p.Y)
	}
	// The title bar stays on screen
	p.DragTo(200, -3, 80, 24)
	if p.X != 75 || p.Y != 0 {
		t.Errorf("moved to %d,%d, want 75,0", p.X, p.Y)
	}
	p.EndDrag()
	if p.Dragging() {
		t.Error("still dragging")
	}

	p = NewPane("b", nil, 0, 0, 30, 10)
	p.BeginDrag(29, 9)
	p.DragTo(5, 2, 80, 24)
	if p.Width != paneMinW || p.Height != paneMinH {
		t.Errorf("resized to %dx%d, want the minimum", p.Width, p.Height)
	}
}

func TestPaneRender(t *testing.T) {
	p := NewPane("a", textContent("hello"), 0, 0, 20, 4)
	p.Badge = "[##]"
	lines := strings.Split(ansi.Strip(p.Render()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "┌ note ───────[##] ┐" {
		t.Errorf("title = %q", lines[0])
	}
	if lines[1] != "│hello             │" {
		t.Errorf("body = %q", lines[1])
	}

	p.Focused = true
	if !strings.HasPrefix(ansi.Strip(p.Render()), "╔") {
		t.Error("focused pane lacks a double border")
	}
}

func TestTitleBar(t *testing.T) {
	if got := titleBar("title", "", 10, "─"); got != " title ───" {
		t.Errorf("titleBar = %q", got)
	}
	// The badge goes before the title is cut
	if got := titleBar("long title", "[###]", 6, "─"); got != " long " {
		t.Errorf("narrow titleBar = %q", got)
	}
	if got := titleBar("x", "", 1, "─"); got != "─" {
		t.Errorf("tiny titleBar = %q", got)
	}
}

func TestOverlays(t *testing.T) {
	o := NewOverlays(80, 24)
	if !o.Empty() || o.Focused() != nil {
		t.Fatal("new stack not empty")
	}

	a := NewPane("a", nil, 0, 0, 20, 10)
	b := NewPane("b", nil, 10, 5, 20, 10)
	o.Open(a)
	o.Open(b)
	if o.Focused() != b || a.Focused || !b.Focused {
		t.Fatal("Open did not move focus")
	}
	if o.At(12, 6) != b {
		t.Error("At did not return the top pane")
	}

	o.Cycle()
	if o.Focused() != a || o.At(12, 6) != a {
		t.Error("Cycle did not raise the bottom pane")
	}

	o.Blur()
	if o.Focused() != nil || a.Focused {
		t.Error("Blur left a pane focused")
	}

	o.Focus("b")
	o.Close("b")
	if o.Focused() != a || o.Get("b") != nil {
		t.Error("closing the focused pane did not pass focus down")
	}

	o.Resize(40, 8)
	o.Open(NewPane("c", nil, 60, 20, 20, 5))
	o.Resize(40, 8)
	if c := o.Get("c"); c.X != 35 || c.Y != 7 {
		t.Errorf("Resize left pane at %d,%d", c.X, c.Y)
	}
}
