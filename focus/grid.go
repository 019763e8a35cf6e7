// Package focus decides which pane of a rows×cols grid holds keyboard focus,
// given a stream of gaze positions or pre-resolved grid cells.
package focus

import (
	"errors"
	"fmt"
	"math"
)

// NoPane marks the absence of a pane index (no focus yet, no candidate, or a
// position that resolves to nothing).
const NoPane = -1

var (
	// ErrInvalidGrid is returned when a grid or target has non-positive dimensions.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrInvalidDwell is returned for a negative dwell threshold.
	ErrInvalidDwell = errors.New("invalid dwell threshold")
)

// Target is anything that can receive gaze-driven focus: the in-process pane
// grid, or an external multiplexer such as tmux.
type Target interface {
	// PaneCount is the number of focusable panes. It may be smaller than
	// Rows()*Cols() when the last row is partially filled.
	PaneCount() int
	Rows() int
	Cols() int

	// PaneAt returns the pane under the normalized position (0-1 on both axes).
	PaneAt(xRatio, yRatio float64) (int, bool)

	// FocusPane moves focus to the pane at index.
	FocusPane(index int)
}

// Resolve maps a normalized position to a row-major pane index.
//
// Ratios outside [0,1] resolve to nothing. A ratio of exactly 1.0 lands in
// the last row or column.
func Resolve(xRatio, yRatio float64, rows, cols, paneCount int) (int, bool) {
	if rows < 1 || cols < 1 {
		return NoPane, false
	}
	if !(xRatio >= 0 && xRatio <= 1 && yRatio >= 0 && yRatio <= 1) {
		return NoPane, false
	}

	col := int(math.Floor(xRatio * float64(cols)))
	row := int(math.Floor(yRatio * float64(rows)))
	if col >= cols {
		col = cols - 1
	}
	if row >= rows {
		row = rows - 1
	}

	index := row*cols + col
	if index >= paneCount {
		return NoPane, false
	}
	return index, true
}

// CellIndex converts a grid cell to a pane index. Cells outside the grid, or
// past the last pane, resolve to nothing.
func CellIndex(row, col, rows, cols, paneCount int) (int, bool) {
	if row < 0 || col < 0 || row >= rows || col >= cols {
		return NoPane, false
	}
	index := row*cols + col
	if index >= paneCount {
		return NoPane, false
	}
	return index, true
}

// Grid is the addressing half of a Target: dimensions plus pane count.
// Renderable targets embed it and add FocusPane.
type Grid struct {
	rows  int
	cols  int
	panes int
}

// NewGrid returns a fully populated rows×cols grid.
func NewGrid(rows, cols int) (Grid, error) {
	return NewPartialGrid(rows, cols, rows*cols)
}

// NewPartialGrid returns a rows×cols grid holding only panes panes.
func NewPartialGrid(rows, cols, panes int) (Grid, error) {
	if rows < 1 || cols < 1 {
		return Grid{}, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	if panes < 1 || panes > rows*cols {
		return Grid{}, fmt.Errorf("%w: %d panes in %dx%d", ErrInvalidGrid, panes, rows, cols)
	}
	return Grid{rows: rows, cols: cols, panes: panes}, nil
}

func (g Grid) Rows() int      { return g.rows }
func (g Grid) Cols() int      { return g.cols }
func (g Grid) PaneCount() int { return g.panes }

// PaneAt resolves a normalized position against the grid.
func (g Grid) PaneAt(xRatio, yRatio float64) (int, bool) {
	return Resolve(xRatio, yRatio, g.rows, g.cols, g.panes)
}

// Cell returns the row and column of a pane index.
func (g Grid) Cell(index int) (row, col int) {
	return index / g.cols, index % g.cols
}

// validateTarget rejects targets that could never resolve a pane.
func validateTarget(t Target) error {
	if t == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidGrid)
	}
	rows, cols, panes := t.Rows(), t.Cols(), t.PaneCount()
	if rows < 1 || cols < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	if panes < 1 || panes > rows*cols {
		return fmt.Errorf("%w: %d panes in %dx%d", ErrInvalidGrid, panes, rows, cols)
	}
	return nil
}
