package main

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

//go:embed docs/*.md
var guideFS embed.FS

const guideIndex = "docs/index.md"

var mdLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// guideLink is a link to another page of the same guide.
type guideLink struct {
	text string
	file string // path within the guide fs
}

func (l guideLink) marker() string { return "«" + l.text + "»" }

// guidePage is one markdown page with its internal links swapped for
// «text» markers, so they survive rendering and can be styled afterwards.
type guidePage struct {
	file     string
	title    string
	markdown string
	links    []guideLink
}

func loadGuidePage(fsys fs.FS, file string) (guidePage, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return guidePage{}, fmt.Errorf("guide: %w", err)
	}
	md, links := markLinks(string(raw), path.Dir(file))
	return guidePage{
		file:     file,
		title:    pageTitle(md, file),
		markdown: md,
		links:    links,
	}, nil
}

// markLinks replaces relative links with markers. External links are left
// alone and anchor-only links become plain text.
func markLinks(markdown, dir string) (string, []guideLink) {
	var links []guideLink
	out := mdLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		m := mdLinkRe.FindStringSubmatch(match)
		text, target := m[1], m[2]
		if strings.Contains(target, "://") {
			return match
		}
		target, _, _ = strings.Cut(target, "#")
		if target == "" {
			return text
		}
		l := guideLink{text: text, file: path.Clean(path.Join(dir, target))}
		links = append(links, l)
		return l.marker()
	})
	return out, links
}

func pageTitle(markdown, file string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if t, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return path.Base(file)
}

// RenderMarkdown renders markdown for terminal display at the given width.
// Fixed styles keep glamour from querying the terminal while the TUI owns
// it.
func RenderMarkdown(markdown string, width int) string {
	style := "dark"
	if !colorEnabled {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

var guideLinkStyle = lipgloss.NewStyle().Underline(true)

// DocPane shows the embedded user guide. n and p select links, Enter
// follows one and b goes back.
type DocPane struct {
	fsys     fs.FS
	page     guidePage
	history  []guidePage
	offsets  []int // scroll offset to restore for each history entry
	selected int   // index into page.links, -1 for none

	vp       viewport.Model
	rendered []string // lines with markers, for the current width
	width    int
}

// NewDocPane opens file from fsys.
func NewDocPane(fsys fs.FS, file string) (*DocPane, error) {
	page, err := loadGuidePage(fsys, file)
	if err != nil {
		return nil, err
	}
	d := &DocPane{fsys: fsys, vp: viewport.New(0, 0)}
	d.show(page)
	return d, nil
}

func (d *DocPane) show(page guidePage) {
	d.page = page
	d.selected = -1
	d.width = 0 // re-render on next draw
	d.vp.SetYOffset(0)
}

func (d *DocPane) Title() string {
	if len(d.history) > 0 {
		return "← " + d.page.title
	}
	return d.page.title
}

func (d *DocPane) Render(w, h int) string {
	d.vp.Width, d.vp.Height = w, h
	if w != d.width {
		d.width = w
		rendered := RenderMarkdown(d.page.markdown, w)
		d.rendered = strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	}
	offset := d.vp.YOffset
	d.vp.SetContent(strings.Join(d.styledLines(), "\n"))
	d.vp.SetYOffset(offset)
	return d.vp.View()
}

// styledLines swaps link markers for link text, highlighting the selected
// link.
func (d *DocPane) styledLines() []string {
	style := guideLinkStyle
	if colorEnabled {
		style = style.Foreground(AccentColor)
	}
	lines := append([]string(nil), d.rendered...)
	for i, l := range d.page.links {
		text := style.Render(l.text)
		if i == d.selected {
			text = style.Bold(true).Reverse(true).Render(l.text)
		}
		if n := d.linkLine(i); n >= 0 {
			lines[n] = strings.Replace(lines[n], l.marker(), text, 1)
		}
	}
	return lines
}

// linkLine returns the rendered line holding link i, or -1 when wrapping
// split its marker. Links with the same text are told apart by order.
func (d *DocPane) linkLine(i int) int {
	l := d.page.links[i]
	nth := 0
	for _, prev := range d.page.links[:i] {
		if prev.text == l.text {
			nth++
		}
	}
	for n, line := range d.rendered {
		c := strings.Count(ansi.Strip(line), l.marker())
		if nth < c {
			return n
		}
		nth -= c
	}
	return -1
}

func (d *DocPane) HandleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		d.scroll(-1)
	case "down", "j":
		d.scroll(1)
	case "pgup":
		d.scroll(-max(d.vp.Height-1, 1))
	case "pgdown", " ":
		d.scroll(max(d.vp.Height-1, 1))
	case "n":
		d.step(1)
	case "p", "shift+tab":
		d.step(-1)
	case "enter":
		d.follow()
	case "b", "backspace":
		d.back()
	default:
		return false
	}
	return true
}

func (d *DocPane) HandleMouse(x, y int, msg tea.MouseMsg) bool {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		d.scroll(-3)
	case tea.MouseButtonWheelDown:
		d.scroll(3)
	default:
		return false
	}
	return true
}

func (d *DocPane) scroll(n int) {
	d.vp.SetYOffset(d.vp.YOffset + n)
}

// step moves the link selection and scrolls the link into view.
func (d *DocPane) step(delta int) {
	n := len(d.page.links)
	if n == 0 {
		return
	}
	if d.selected < 0 && delta < 0 {
		d.selected = 0
	}
	d.selected = ((d.selected+delta)%n + n) % n
	line := d.linkLine(d.selected)
	if line >= 0 && (line < d.vp.YOffset || line >= d.vp.YOffset+d.vp.Height) {
		d.vp.SetYOffset(max(line-2, 0))
	}
}

func (d *DocPane) follow() {
	if d.selected < 0 || d.selected >= len(d.page.links) {
		return
	}
	page, err := loadGuidePage(d.fsys, d.page.links[d.selected].file)
	if err != nil {
		return
	}
	d.history = append(d.history, d.page)
	d.offsets = append(d.offsets, d.vp.YOffset)
	d.show(page)
}

func (d *DocPane) back() {
	n := len(d.history)
	if n == 0 {
		return
	}
	page, offset := d.history[n-1], d.offsets[n-1]
	d.history, d.offsets = d.history[:n-1], d.offsets[:n-1]
	d.show(page)
	d.vp.YOffset = offset
}
