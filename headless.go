package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cursork/glimpsh/focus"
	"github.com/cursork/glimpsh/gaze"
	"github.com/cursork/glimpsh/logger"
	"github.com/cursork/glimpsh/metrics"
	"github.com/cursork/glimpsh/tmux"
)

// How often tmux mode re-reads the window layout
const tmuxRefreshInterval = 2 * time.Second

type headlessOptions struct {
	Config  Config
	Source  gazeSource
	Window  string
	Socket  string
	Runner  tmux.Runner // defaults to the tmux binary
	Logger  logger.Logger
	Metrics *metrics.Manager

	RefreshEvery time.Duration // layout polling, defaults to tmuxRefreshInterval

	onEngine func(*focus.Engine) // called with every engine built
}

// runHeadless drives tmux select-pane from gaze until interrupted.
func runHeadless(ctx context.Context, opts headlessOptions) error {
	if opts.Source.mode == gazeNone {
		return errors.New("tmux mode needs a gaze source; use --gaze test or a provider")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	screenW, screenH, err := parseScreen(opts.Config.Gaze.Screen)
	if err != nil {
		return err
	}

	url := opts.Source.provider.URL
	if opts.Source.mode == gazeTest {
		mock := gaze.NewMockServer(
			gaze.WithScreen(screenW, screenH),
			gaze.WithMockLogger(opts.Logger.Named("mock")),
		)
		if err := mock.Start("127.0.0.1:0"); err != nil {
			return err
		}
		defer mock.Close()
		url = mock.URL()
	}

	bridge := newGazeBridge()
	client := gaze.NewClient(gaze.ClientConfig{URL: url}, bridge.Handlers(),
		gaze.WithLogger(opts.Logger),
		gaze.WithMetrics(opts.Metrics),
	)
	client.Start()
	defer client.Stop()
	defer bridge.Close()

	fmt.Fprintf(os.Stderr, "glimpsh: driving tmux panes from %s (Ctrl+C to stop)\n", url)
	return driveTmux(ctx, bridge.events, opts, screenW, screenH)
}

// driveTmux feeds gaze events to a focus engine over a tmux target until
// ctx is done.
func driveTmux(ctx context.Context, events <-chan gazeEvent, opts headlessOptions, screenW, screenH float64) error {
	log := opts.Logger
	runner := opts.Runner
	if runner == nil {
		runner = tmux.ExecRunner{Socket: opts.Socket}
	}

	target, err := tmux.New(ctx, runner, opts.Window, tmux.WithLogger(log.Named("tmux")))
	if err != nil {
		return err
	}

	// Pane indices only hold for one layout, so the engine is rebuilt
	// whenever tmux re-lays out the window.
	newEngine := func() (*focus.Engine, error) {
		e, err := focus.New(target,
			focus.WithDwell(time.Duration(opts.Config.Gaze.DwellTimeMS)*time.Millisecond),
			focus.WithViewport(screenW, screenH),
			focus.WithLogger(log.Named("focus")),
			focus.WithMetrics(opts.Metrics),
			focus.WithOnFocusChange(func(prev, next int) {
				log.Info(ctx, "tmux pane focused", logger.Int("pane", next+1), logger.Int("panes", target.PaneCount()))
			}),
		)
		if err != nil {
			return nil, err
		}
		if a := target.Active(); a >= 0 {
			e.Focus(a)
		}
		if opts.onEngine != nil {
			opts.onEngine(e)
		}
		return e, nil
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}

	every := opts.RefreshEvery
	if every <= 0 {
		every = tmuxRefreshInterval
	}
	refresh := time.NewTicker(every)
	defer refresh.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-refresh.C:
			changed, err := target.Refresh(ctx)
			switch {
			case err != nil:
				log.Warn(ctx, "tmux refresh failed", logger.Error(err))
			case changed:
				log.Info(ctx, "tmux layout changed", logger.Int("panes", target.PaneCount()),
					logger.Int("rows", target.Rows()), logger.Int("cols", target.Cols()))
				if engine, err = newEngine(); err != nil {
					return err
				}
			default:
				// Follow focus moved from inside tmux
				if a := target.Active(); a >= 0 && a != engine.CurrentFocus() {
					engine.Focus(a)
				}
			}

		case ev := <-events:
			switch ev.kind {
			case gazeSampled:
				at := time.Now()
				if c := ev.sample.Cell; c != nil {
					engine.UpdateCell(c.Row, c.Col, at)
					continue
				}
				x, y := gaze.ToScreen(ev.sample, screenW, screenH)
				engine.UpdatePosition(x, y, at)
			case gazeConnected:
				log.Info(ctx, "gaze connected")
			case gazeDisconnected:
				log.Info(ctx, "gaze disconnected")
				engine.UpdatePosition(-1, -1, time.Now())
			case gazeIdentified:
				log.Info(ctx, "gaze source", logger.String("name", ev.ident.Name), logger.String("version", ev.ident.Version))
			}
		}
	}
}
