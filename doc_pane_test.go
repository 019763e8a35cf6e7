package main

import (
	"strings"
	"testing"
	"testing/fstest"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderMarkdown(t *testing.T) {
	out := ansi.Strip(RenderMarkdown("# Hello\n\nThis is a test paragraph.\n", 60))
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "test paragraph") {
		t.Errorf("rendered output = %q", out)
	}
}

func TestMarkLinks(t *testing.T) {
	md := "See [Keys](keys.md#palette), [home](https://example.com) and [top](#top)."
	out, links := markLinks(md, "docs")

	if out != "See «Keys», [home](https://example.com) and top." {
		t.Errorf("marked = %q", out)
	}
	if len(links) != 1 || links[0].text != "Keys" || links[0].file != "docs/keys.md" {
		t.Errorf("links = %+v", links)
	}
}

var testGuide = fstest.MapFS{
	"docs/index.md": {Data: []byte("# Overview\n\nRead about [keys](keys.md) or [tmux](tmux.md).\n")},
	"docs/keys.md":  {Data: []byte("# Keys\n\nAlt+1 focuses pane 1.\n")},
}

func TestDocPaneLinks(t *testing.T) {
	dp, err := NewDocPane(testGuide, "docs/index.md")
	if err != nil {
		t.Fatal(err)
	}
	if dp.Title() != "Overview" {
		t.Errorf("Title() = %q", dp.Title())
	}
	out := ansi.Strip(dp.Render(60, 10))
	if strings.Contains(out, "«") || !strings.Contains(out, "keys") {
		t.Errorf("link markers not replaced: %q", out)
	}

	// Enter without a selected link does nothing
	dp.HandleKey(keyPress("enter"))
	if dp.page.file != "docs/index.md" {
		t.Fatalf("followed a link with none selected: %s", dp.page.file)
	}

	// p wraps to the last link, n wraps back to the first
	dp.HandleKey(keyPress("p"))
	if dp.selected != 1 {
		t.Errorf("p selected %d, want 1", dp.selected)
	}
	dp.HandleKey(keyPress("n"))
	if dp.selected != 0 {
		t.Errorf("n selected %d, want 0", dp.selected)
	}

	dp.HandleKey(keyPress("enter"))
	if dp.page.file != "docs/keys.md" || dp.Title() != "← Keys" {
		t.Errorf("after following: file=%s title=%q", dp.page.file, dp.Title())
	}
	if !strings.Contains(ansi.Strip(dp.Render(60, 10)), "focuses pane 1") {
		t.Error("linked page not rendered")
	}

	dp.HandleKey(keyPress("b"))
	if dp.page.file != "docs/index.md" || dp.Title() != "Overview" {
		t.Errorf("after back: file=%s title=%q", dp.page.file, dp.Title())
	}

	// A missing target leaves the page alone
	dp.HandleKey(keyPress("p"))
	dp.HandleKey(keyPress("enter"))
	if dp.page.file != "docs/index.md" || len(dp.history) != 0 {
		t.Errorf("broken link changed page to %s", dp.page.file)
	}

	if dp.HandleKey(keyPress("x")) {
		t.Error("unbound key consumed")
	}
}

func TestDocPaneMissingPage(t *testing.T) {
	if _, err := NewDocPane(testGuide, "docs/nope.md"); err == nil {
		t.Error("expected an error for a missing page")
	}
}

func TestDocPaneScroll(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Long\n\n")
	for i := 0; i < 100; i++ {
		sb.WriteString("Line\n\n")
	}
	dp, err := NewDocPane(fstest.MapFS{"long.md": {Data: []byte(sb.String())}}, "long.md")
	if err != nil {
		t.Fatal(err)
	}
	dp.Render(40, 10)

	dp.HandleKey(keyPress("j"))
	dp.HandleKey(keyPress("j"))
	if dp.vp.YOffset != 2 {
		t.Errorf("after two lines down: offset = %d", dp.vp.YOffset)
	}
	dp.HandleKey(keyPress("k"))
	dp.HandleKey(keyPress("k"))
	dp.HandleKey(keyPress("k"))
	if dp.vp.YOffset != 0 {
		t.Errorf("scrolled above the top: %d", dp.vp.YOffset)
	}

	dp.HandleKey(keyPress("pgdown"))
	if dp.vp.YOffset != 9 {
		t.Errorf("page down moved to %d, want 9", dp.vp.YOffset)
	}

	// The offset survives a redraw
	dp.Render(40, 10)
	if dp.vp.YOffset != 9 {
		t.Errorf("redraw reset offset to %d", dp.vp.YOffset)
	}
}

func TestGuideEmbedded(t *testing.T) {
	dp, err := NewDocPane(guideFS, guideIndex)
	if err != nil {
		t.Fatal(err)
	}
	if dp.Title() != "glimpsh" {
		t.Errorf("guide title = %q", dp.Title())
	}
	if len(dp.page.links) != 3 {
		t.Errorf("guide index links = %d, want 3", len(dp.page.links))
	}
	for _, name := range []string{"index.md", "gaze.md", "keys.md", "tmux.md"} {
		page, err := loadGuidePage(guideFS, "docs/"+name)
		if err != nil {
			t.Fatal(err)
		}
		for _, l := range page.links {
			if _, err := guideFS.Open(l.file); err != nil {
				t.Errorf("%s: broken link %q: %v", name, l.text, err)
			}
		}
	}
}
