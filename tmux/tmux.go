// Package tmux moves keyboard focus between the panes of a tmux window. A
// Target satisfies focus.Target, so the focus engine can drive tmux directly
// from gaze without glimpsh drawing anything itself.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/cursork/glimpsh/focus"
	"github.com/cursork/glimpsh/logger"
)

// ErrNoPanes is returned when the target window has no panes to focus.
var ErrNoPanes = errors.New("tmux: no panes")

// Runner runs one tmux command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the tmux binary. With a Socket set every command targets
// that server via -S; otherwise the user's default server is used.
type ExecRunner struct {
	Socket string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	if r.Socket != "" {
		args = append([]string{"-S", r.Socket}, args...)
	}
	cmd := exec.CommandContext(ctx, "tmux", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tmux %s: %w (%s)", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Pane is one tmux pane, positioned in window cells.
type Pane struct {
	ID     string // e.g. "%3"
	Index  int    // tmux pane_index
	Left   int
	Top    int
	Width  int
	Height int
	Active bool
}

const listFormat = "#{pane_id}\t#{pane_index}\t#{pane_left}\t#{pane_top}\t#{pane_width}\t#{pane_height}\t#{pane_active}\t#{window_width}\t#{window_height}"

// Target is a tmux window whose panes are addressed in row-major order
// (top to bottom, then left to right).
type Target struct {
	runner Runner
	window string
	log    logger.Logger

	panes  []Pane
	rows   int
	cols   int
	width  int
	height int
}

// Option configures a Target.
type Option func(*Target)

// WithLogger sets the logger used for select-pane failures.
func WithLogger(l logger.Logger) Option {
	return func(t *Target) {
		if l != nil {
			t.log = l
		}
	}
}

// New lists the panes of window (any tmux target-window, "" for the current
// one) and returns a Target over them.
func New(ctx context.Context, runner Runner, window string, opts ...Option) (*Target, error) {
	t := &Target{runner: runner, window: window, log: logger.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := t.Refresh(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Refresh re-reads the pane layout and reports whether the set of panes,
// their order or their geometry changed. When it did, pane indices handed
// out earlier are no longer valid. The active pane alone does not count as
// a change.
func (t *Target) Refresh(ctx context.Context) (bool, error) {
	args := []string{"list-panes", "-F", listFormat}
	if t.window != "" {
		args = append(args, "-t", t.window)
	}
	out, err := t.runner.Run(ctx, args...)
	if err != nil {
		return false, fmt.Errorf("list panes: %w", err)
	}

	panes, width, height, err := parsePanes(out)
	if err != nil {
		return false, err
	}
	if len(panes) == 0 {
		return false, ErrNoPanes
	}

	sort.SliceStable(panes, func(i, j int) bool {
		if panes[i].Top != panes[j].Top {
			return panes[i].Top < panes[j].Top
		}
		return panes[i].Left < panes[j].Left
	})

	changed := width != t.width || height != t.height || !sameGeometry(t.panes, panes)
	t.panes = panes
	t.width, t.height = width, height
	t.rows, t.cols = shape(panes)
	return changed, nil
}

func sameGeometry(a, b []Pane) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		x.Active, y.Active = false, false
		if x != y {
			return false
		}
	}
	return true
}

func parsePanes(out []byte) ([]Pane, int, int, error) {
	var panes []Pane
	var width, height int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) != 9 {
			return nil, 0, 0, fmt.Errorf("list panes: unexpected line %q", line)
		}
		n := make([]int, 8)
		for i := 1; i < 9; i++ {
			v, err := strconv.Atoi(f[i])
			if err != nil {
				return nil, 0, 0, fmt.Errorf("list panes: field %d of %q: %w", i, line, err)
			}
			n[i-1] = v
		}
		panes = append(panes, Pane{
			ID:     f[0],
			Index:  n[0],
			Left:   n[1],
			Top:    n[2],
			Width:  n[3],
			Height: n[4],
			Active: n[5] == 1,
		})
		width, height = n[6], n[7]
	}
	return panes, width, height, nil
}

// shape derives grid dimensions: rows are distinct top edges, columns the
// widest row. Panes must already be sorted.
func shape(panes []Pane) (rows, cols int) {
	perRow := 0
	lastTop := -1
	for _, p := range panes {
		if p.Top != lastTop {
			rows++
			lastTop = p.Top
			perRow = 0
		}
		perRow++
		cols = max(cols, perRow)
	}
	return rows, cols
}

// Panes returns the panes in address order.
func (t *Target) Panes() []Pane {
	return append([]Pane(nil), t.panes...)
}

func (t *Target) PaneCount() int { return len(t.panes) }
func (t *Target) Rows() int      { return t.rows }
func (t *Target) Cols() int      { return t.cols }

// Active returns the index of the pane tmux reports as active, or
// focus.NoPane.
func (t *Target) Active() int {
	for i, p := range t.panes {
		if p.Active {
			return i
		}
	}
	return focus.NoPane
}

// PaneAt finds the pane under a point given as fractions of the window. The
// border to the right of or below a pane counts as part of that pane.
func (t *Target) PaneAt(xRatio, yRatio float64) (int, bool) {
	if math.IsNaN(xRatio) || math.IsNaN(yRatio) ||
		xRatio < 0 || xRatio > 1 || yRatio < 0 || yRatio > 1 {
		return focus.NoPane, false
	}
	x := int(xRatio * float64(t.width))
	y := int(yRatio * float64(t.height))
	for i, p := range t.panes {
		if x >= p.Left && x <= p.Left+p.Width && y >= p.Top && y <= p.Top+p.Height {
			return i, true
		}
	}
	return focus.NoPane, false
}

// FocusPane selects the pane in tmux. Failures are logged; the layout may
// have changed underneath us, so the next Refresh will pick that up.
func (t *Target) FocusPane(index int) {
	if index < 0 || index >= len(t.panes) {
		return
	}
	ctx := context.Background()
	p := t.panes[index]
	if _, err := t.runner.Run(ctx, "select-pane", "-t", p.ID); err != nil {
		t.log.Warn(ctx, "select-pane failed", logger.String("pane", p.ID), logger.Error(err))
		return
	}
	for i := range t.panes {
		t.panes[i].Active = i == index
	}
}
