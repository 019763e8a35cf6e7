package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/cursork/glimpsh/logger"
	"github.com/cursork/glimpsh/metrics"
)

// DefaultDwell is how long gaze must rest on a pane before it takes focus.
const DefaultDwell = 200 * time.Millisecond

// Focus change sources, used as the metrics label.
const (
	SourceDwell  = "dwell"
	SourceManual = "manual"
)

// Option configures an Engine.
type Option func(*Engine)

// WithDwell sets the dwell threshold.
func WithDwell(d time.Duration) Option {
	return func(e *Engine) {
		e.dwell = d
	}
}

// WithViewport sets the viewport size used to normalize positions passed to
// UpdatePosition.
func WithViewport(width, height float64) Option {
	return func(e *Engine) {
		e.SetViewport(width, height)
	}
}

// WithOnFocusChange registers the focus change notification. prev is NoPane
// for the first focus.
func WithOnFocusChange(fn func(prev, next int)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records focus changes and dwell durations.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine turns a noisy stream of gaze positions into deliberate focus changes.
//
// A pane only takes focus after gaze has stayed on it continuously for the
// dwell threshold. Any sample that lands elsewhere, or nowhere, restarts the
// wait; nothing accumulates across excursions.
//
// Engine is not safe for concurrent use. Feed it from a single goroutine.
type Engine struct {
	target   Target
	dwell    time.Duration
	onChange func(prev, next int)
	logger   logger.Logger
	metrics  *metrics.Manager

	invWidth  float64
	invHeight float64

	current        int
	candidate      int
	candidateSince time.Time
}

// New creates an engine for target. No pane is focused until the first
// commit or Focus call.
func New(target Target, opts ...Option) (*Engine, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	e := &Engine{
		target:    target,
		dwell:     DefaultDwell,
		logger:    logger.Nop(),
		current:   NoPane,
		candidate: NoPane,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dwell < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDwell, e.dwell)
	}
	return e, nil
}

// Dwell returns the dwell threshold.
func (e *Engine) Dwell() time.Duration { return e.dwell }

// CurrentFocus returns the focused pane, or NoPane before the first focus.
func (e *Engine) CurrentFocus() int { return e.current }

// SetViewport updates the viewport used by UpdatePosition. A zero or negative
// dimension makes every position resolve to nothing.
func (e *Engine) SetViewport(width, height float64) {
	e.invWidth, e.invHeight = 0, 0
	if width > 0 && height > 0 {
		e.invWidth = 1 / width
		e.invHeight = 1 / height
	}
}

// PaneAt resolves a viewport position to a pane.
func (e *Engine) PaneAt(x, y float64) (int, bool) {
	if e.invWidth == 0 || e.invHeight == 0 {
		return NoPane, false
	}
	return e.target.PaneAt(x*e.invWidth, y*e.invHeight)
}

// UpdatePosition feeds a gaze position in viewport units observed at at.
// It reports whether focus changed.
func (e *Engine) UpdatePosition(x, y float64, at time.Time) bool {
	pane, ok := e.PaneAt(x, y)
	if !ok {
		pane = NoPane
	}
	return e.observe(pane, at)
}

// UpdateCell feeds a grid cell already resolved by the gaze source (which
// applies its own boundary hysteresis). It reports whether focus changed.
func (e *Engine) UpdateCell(row, col int, at time.Time) bool {
	pane, ok := CellIndex(row, col, e.target.Rows(), e.target.Cols(), e.target.PaneCount())
	if !ok {
		pane = NoPane
	}
	return e.observe(pane, at)
}

// observe applies the dwell rule to one resolved sample.
func (e *Engine) observe(pane int, at time.Time) bool {
	if pane < 0 || pane >= e.target.PaneCount() {
		e.clearCandidate()
		return false
	}

	if pane == e.current {
		e.clearCandidate()
		return false
	}

	if pane != e.candidate {
		e.candidate = pane
		e.candidateSince = at
		return false
	}

	elapsed := at.Sub(e.candidateSince)
	if elapsed < e.dwell {
		return false
	}

	e.metrics.DwellCommitted(elapsed)
	e.commit(pane, SourceDwell)
	return true
}

// Focus moves focus to index immediately, bypassing dwell. It reports whether
// focus changed; out-of-range indices and the current pane are ignored.
func (e *Engine) Focus(index int) bool {
	if index < 0 || index >= e.target.PaneCount() {
		return false
	}
	if index == e.current {
		return false
	}
	e.commit(index, SourceManual)
	return true
}

func (e *Engine) commit(pane int, source string) {
	prev := e.current
	e.current = pane
	e.clearCandidate()

	e.target.FocusPane(pane)
	e.metrics.FocusChanged(source)
	e.logger.Debug(context.Background(), "focus changed",
		logger.Int("from", prev),
		logger.Int("to", pane),
		logger.String("via", source),
	)

	if e.onChange != nil {
		e.onChange(prev, pane)
	}
}

func (e *Engine) clearCandidate() {
	e.candidate = NoPane
	e.candidateSince = time.Time{}
}

// Progress reports the pane currently accumulating dwell time and how far it
// has got, as a fraction of the threshold in [0,1]. Without a candidate it
// returns NoPane and 0.
func (e *Engine) Progress(at time.Time) (int, float64) {
	if e.candidate == NoPane {
		return NoPane, 0
	}
	if e.dwell <= 0 {
		return e.candidate, 1
	}

	frac := float64(at.Sub(e.candidateSince)) / float64(e.dwell)
	switch {
	case frac < 0:
		frac = 0
	case frac > 1:
		frac = 1
	}
	return e.candidate, frac
}
