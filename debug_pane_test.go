package main

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/cursork/glimpsh/logger"
)

func TestDebugPaneFollows(t *testing.T) {
	ring := logger.NewRing(100)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(ring, "level=INFO msg=line%d\n", i)
	}
	d := NewDebugPane(ring)

	out := ansi.Strip(d.Render(40, 5))
	if !strings.Contains(out, "line19") || strings.Contains(out, "line10") {
		t.Errorf("not tailing: %q", out)
	}

	// Scrolling up pauses the tail
	d.HandleKey(tea.KeyMsg{Type: tea.KeyUp})
	fmt.Fprintf(ring, "level=WARN msg=line20\n")
	out = ansi.Strip(d.Render(40, 5))
	if strings.Contains(out, "line20") {
		t.Errorf("paused pane followed a new line: %q", out)
	}
	if d.Title() != "debug (paused)" {
		t.Errorf("Title() = %q", d.Title())
	}

	d.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	fmt.Fprintf(ring, "level=INFO msg=line21\n")
	out = ansi.Strip(d.Render(40, 5))
	if !strings.Contains(out, "line21") || d.Title() != "debug" {
		t.Errorf("G did not resume following: %q", out)
	}
}
