package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// Command is one palette entry. Key is the binding that runs it directly,
// if there is one.
type Command struct {
	Name string
	Help string
	Key  string
}

// paletteCommands lists the commands offered for a grid of n panes.
func paletteCommands(n int, keys KeyMap) []Command {
	hint := func(b interface{ Keys() []string }, i int) string {
		if k := b.Keys(); i < len(k) {
			return k[i]
		}
		return ""
	}

	cmds := make([]Command, 0, n+5)
	for i := 0; i < n; i++ {
		cmds = append(cmds, Command{
			Name: fmt.Sprintf("focus-pane-%d", i+1),
			Help: fmt.Sprintf("Focus pane %d now, skipping dwell", i+1),
			Key:  hint(keys.FocusPane, i),
		})
	}
	return append(cmds,
		Command{Name: "debug", Help: "Toggle the debug log", Key: hint(keys.ToggleDebug, 0)},
		Command{Name: "guide", Help: "Open the user guide"},
		Command{Name: "reconnect", Help: "Reconnect to the gaze source"},
		Command{Name: "keys", Help: "Show all key bindings", Key: hint(keys.Help, 0)},
		Command{Name: "quit", Help: "Exit glimpsh", Key: hint(keys.Quit, 0)},
	)
}

// focusCommand returns the pane index named by a focus-pane-N command.
func focusCommand(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "focus-pane-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// matchRank orders query matches: name prefix, then name, then help text.
// It returns -1 when cmd does not match at all.
func matchRank(cmd Command, q string) int {
	name := strings.ToLower(cmd.Name)
	switch {
	case strings.HasPrefix(name, q):
		return 0
	case strings.Contains(name, q):
		return 1
	case strings.Contains(strings.ToLower(cmd.Help), q):
		return 2
	}
	return -1
}

// CommandPalette is a filterable command list. Typing narrows it, Enter or
// a click picks the highlighted command.
type CommandPalette struct {
	all     []Command
	shown   []Command
	query   string
	cursor  int
	top     int // first visible row
	rows    int // list height at last render
	chosen  string
	nameCol int
}

func NewCommandPalette(commands []Command) *CommandPalette {
	p := &CommandPalette{all: commands, shown: commands}
	for _, c := range commands {
		p.nameCol = max(p.nameCol, len(c.Name))
	}
	return p
}

// Chosen returns the picked command name, or "" while the palette is open.
func (p *CommandPalette) Chosen() string { return p.chosen }

func (p *CommandPalette) setQuery(q string) {
	p.query = q
	p.cursor, p.top = 0, 0
	if q == "" {
		p.shown = p.all
		return
	}

	q = strings.ToLower(q)
	type ranked struct {
		cmd  Command
		rank int
	}
	var hits []ranked
	for _, c := range p.all {
		if r := matchRank(c, q); r >= 0 {
			hits = append(hits, ranked{c, r})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	p.shown = make([]Command, len(hits))
	for i, h := range hits {
		p.shown[i] = h.cmd
	}
}

func (p *CommandPalette) Title() string {
	return "Commands"
}

func (p *CommandPalette) Render(w, h int) string {
	prompt := lipgloss.NewStyle().Foreground(AccentColor).Render("› ")
	lines := []string{
		prompt + p.query + cursorStyle.Render(" "),
		strings.Repeat("─", w),
	}

	p.rows = max(h-2, 1)
	p.keepVisible()

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hi := lipgloss.NewStyle().Background(AccentColor).Foreground(lipgloss.Color("0"))
	nameW := min(p.nameCol, max(w/3, 10))

	end := min(p.top+p.rows, len(p.shown))
	for i := p.top; i < end; i++ {
		c := p.shown[i]
		name := ansi.Truncate(c.Name, nameW, "…")
		name += strings.Repeat(" ", nameW-ansi.StringWidth(name))

		help := c.Help
		if c.Key != "" {
			help += " (" + c.Key + ")"
		}

		var line string
		switch {
		case i != p.cursor:
			line = name + "  " + dim.Render(help)
		case colorEnabled:
			line = hi.Render(name) + "  " + dim.Render(help)
		default:
			line = "> " + name + "  " + help
		}
		lines = append(lines, ansi.Truncate(line, w, "…"))
	}
	if len(p.shown) == 0 {
		lines = append(lines, dim.Render("no matching commands"))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines[:max(h, 1)], "\n")
}

func (p *CommandPalette) keepVisible() {
	if p.cursor < p.top {
		p.top = p.cursor
	}
	if p.cursor >= p.top+p.rows {
		p.top = p.cursor - p.rows + 1
	}
}

func (p *CommandPalette) move(delta int) {
	if len(p.shown) == 0 {
		return
	}
	p.cursor = min(max(p.cursor+delta, 0), len(p.shown)-1)
	p.keepVisible()
}

func (p *CommandPalette) HandleKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		p.move(-1)
	case tea.KeyDown:
		p.move(1)
	case tea.KeyPgUp:
		p.move(-p.rows)
	case tea.KeyPgDown:
		p.move(p.rows)
	case tea.KeyEnter:
		if p.cursor < len(p.shown) {
			p.chosen = p.shown[p.cursor].Name
		}
	case tea.KeyBackspace:
		if q := []rune(p.query); len(q) > 0 {
			p.setQuery(string(q[:len(q)-1]))
		}
	case tea.KeyRunes, tea.KeySpace:
		p.setQuery(p.query + string(msg.Runes))
	default:
		// Esc and friends belong to the pane manager
		return false
	}
	return true
}

func (p *CommandPalette) HandleMouse(x, y int, msg tea.MouseMsg) bool {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		p.move(-1)
		return true
	case tea.MouseButtonWheelDown:
		p.move(1)
		return true
	case tea.MouseButtonLeft:
		i := p.top + y - 2
		if y < 2 || i >= len(p.shown) {
			return false
		}
		p.cursor = i
		p.chosen = p.shown[i].Name
		return true
	}
	return false
}
