package main

import (
	"testing"

	"github.com/charmbracelet/x/cellbuf"
)

func TestGazeCursorAnimation(t *testing.T) {
	c := &GazeCursor{Visible: true}
	if c.Glyph() != '·' {
		t.Fatalf("first frame = %q", c.Glyph())
	}
	for i := 0; i < len(pulseFrames); i++ {
		c.Advance()
	}
	if c.frame != 0 {
		t.Errorf("animation did not wrap, frame = %d", c.frame)
	}

	c.Advance()
	c.Visible = false
	c.Advance()
	if c.frame != 1 {
		t.Errorf("hidden cursor advanced to frame %d", c.frame)
	}
}

func TestGazeCursorPlace(t *testing.T) {
	c := &GazeCursor{}
	c.Place(40.7, 10.2, 0, 1, 80, 22)
	if c.X != 40 || c.Y != 11 {
		t.Errorf("placed at (%d,%d), want (40,11)", c.X, c.Y)
	}

	c.Place(500, -3, 0, 1, 80, 22)
	if c.X != 79 || c.Y != 1 {
		t.Errorf("clamped to (%d,%d), want (79,1)", c.X, c.Y)
	}

	c.Place(5, 5, 0, 1, 0, 0)
	if c.X != 79 || c.Y != 1 {
		t.Error("empty area moved the cursor")
	}
}

func TestGazeCursorDraw(t *testing.T) {
	buf := cellbuf.NewBuffer(10, 3)
	c := &GazeCursor{X: 4, Y: 2}

	c.Draw(buf)
	if cell := buf.Cell(4, 2); cell != nil && cell.Rune == c.Glyph() {
		t.Error("hidden cursor was drawn")
	}

	c.Visible = true
	c.Draw(buf)
	cell := buf.Cell(4, 2)
	if cell == nil || cell.Rune != c.Glyph() {
		t.Fatalf("cursor cell = %+v", cell)
	}
	if cell.Style.Attrs&cellbuf.BoldAttr == 0 {
		t.Error("cursor is not bold")
	}
}
