package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/colorprofile"
	"github.com/cursork/glimpsh/gaze"
	"github.com/cursork/glimpsh/logger"
	"github.com/cursork/glimpsh/metrics"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

// Gaze modes besides provider names
const (
	gazeNone = "none"
	gazeTest = "test"
)

type options struct {
	rows        int
	cols        int
	gaze        string
	configPath  string
	configure   bool
	recalibrate bool
	debug       bool
	target      string
	tmuxTarget  string
	tmuxSocket  string
	screen      string
	metricsAddr string
	logLevel    string
	version     bool
	help        bool

	command []string // trailing arguments, the pane label
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("glimpsh", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.IntVarP(&opts.rows, "rows", "r", 0, "number of rows in the grid (default from config)")
	fs.IntVarP(&opts.cols, "cols", "c", 0, "number of columns in the grid (default from config)")
	fs.StringVar(&opts.gaze, "gaze", "", "gaze mode: none (keyboard only), test (Ctrl+Arrow simulation), or a provider name")
	fs.StringVar(&opts.configPath, "config", "", "path to config file (default "+ConfigPath()+")")
	fs.BoolVar(&opts.configure, "configure", false, "print config file path and exit")
	fs.BoolVar(&opts.recalibrate, "recalibrate", false, "force full recalibration of the gaze provider")
	fs.BoolVar(&opts.debug, "debug", false, "open the debug log pane and log at debug level")
	fs.StringVar(&opts.target, "target", "tui", "what gaze focuses: tui (glimpsh grid) or tmux (panes of a tmux window)")
	fs.StringVar(&opts.tmuxTarget, "tmux-target", "", "tmux window to drive in tmux mode (default current)")
	fs.StringVar(&opts.tmuxSocket, "tmux-socket", "", "tmux server socket in tmux mode")
	fs.StringVar(&opts.screen, "screen", "", "screen size gaze pixels refer to in tmux mode, WIDTHxHEIGHT")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.BoolVarP(&opts.help, "help", "h", false, "show help")
	return fs
}

// parseFlags parses args (without the program name).
func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.help = true
			return opts, fs, nil
		}
		return nil, fs, err
	}
	opts.command = fs.Args()
	switch opts.target {
	case "tui", "tmux":
	default:
		return nil, fs, fmt.Errorf("--target must be tui or tmux, got %q", opts.target)
	}
	return opts, fs, nil
}

// applyFlags overrides config values with flags that were set.
func applyFlags(cfg *Config, fs *pflag.FlagSet, opts *options) error {
	if fs.Changed("rows") {
		cfg.Grid.Rows = opts.rows
	}
	if fs.Changed("cols") {
		cfg.Grid.Cols = opts.cols
	}
	if opts.screen != "" {
		cfg.Gaze.Screen = opts.screen
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}
	if len(opts.command) > 0 {
		cfg.Command = strings.Join(opts.command, " ")
	}
	return cfg.Validate()
}

// gazeSource is what --gaze resolved to.
type gazeSource struct {
	mode     string // gazeNone, gazeTest or "provider"
	provider ProviderConfig
}

func resolveGaze(cfg Config, mode string) (gazeSource, error) {
	switch mode {
	case gazeNone, gazeTest:
		return gazeSource{mode: mode}, nil
	}
	p, ok := cfg.Provider(mode)
	if !ok {
		if mode == "" {
			// No providers configured: keyboard only
			return gazeSource{mode: gazeNone}, nil
		}
		available := append([]string{gazeNone, gazeTest}, cfg.ProviderNames()...)
		return gazeSource{}, fmt.Errorf("unknown gaze provider: %s\nAvailable: %s", mode, strings.Join(available, ", "))
	}
	return gazeSource{mode: "provider", provider: p}, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, fs, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(fs)
		return nil
	}
	if opts.version {
		fmt.Println("glimpsh", version)
		return nil
	}

	// Create the config on first run
	path := opts.configPath
	if path == "" {
		path = ConfigPath()
	}
	created, err := WriteDefaultConfig(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Config: %s\n\n", path)
	}
	if opts.configure {
		fmt.Println(path)
		return nil
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, fs, opts); err != nil {
		return err
	}
	src, err := resolveGaze(cfg, opts.gaze)
	if err != nil {
		return err
	}

	ring := logger.NewRing(500)
	logFile, err := openSessionLog(time.Now())
	if err != nil {
		return err
	}
	defer logFile.Close()
	log, err := logger.New(io.MultiWriter(logFile, ring), cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Info(context.Background(), "glimpsh starting",
		logger.String("version", version),
		logger.String("config", path),
		logger.String("gaze", src.mode),
		logger.String("target", opts.target),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewManager()
	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(cfg.Metrics.Addr, m, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	// Start a provider that has a launch command
	if src.mode == "provider" && src.provider.Command != "" {
		pp, err := launchProvider(ctx, src.provider, cfg.Grid.Rows, cfg.Grid.Cols, opts.recalibrate, log.Named("provider"))
		if err != nil {
			if errors.Is(err, ErrProviderNotFound) {
				return fmt.Errorf("%w\nInstall it, or use --gaze none for keyboard-only mode", err)
			}
			return err
		}
		defer pp.Stop()
	}

	if opts.target == "tmux" {
		return runHeadless(ctx, headlessOptions{
			Config:  cfg,
			Source:  src,
			Window:  opts.tmuxTarget,
			Socket:  opts.tmuxSocket,
			Logger:  log,
			Metrics: m,
		})
	}
	return runTUI(ctx, cfg, src, opts.debug, log, ring, m)
}

func runTUI(ctx context.Context, cfg Config, src gazeSource, debug bool, log logger.Logger, ring *logger.Ring, m *metrics.Manager) error {
	setColorProfile(colorprofile.Detect(os.Stdout, os.Environ()))

	mo := ModelOptions{
		Config:    cfg,
		Keys:      cfg.ToKeyMap(),
		Label:     cfg.Command,
		Logger:    log,
		Ring:      ring,
		Metrics:   m,
		Version:   version,
		ShowDebug: debug,
	}

	if src.mode != gazeNone {
		url := src.provider.URL
		if src.mode == gazeTest {
			mock := gaze.NewMockServer(gaze.WithMockLogger(log.Named("mock")))
			if err := mock.Start("127.0.0.1:0"); err != nil {
				return err
			}
			defer mock.Close()
			mo.Mock = mock
			url = mock.URL()
		}

		bridge := newGazeBridge()
		client := gaze.NewClient(gaze.ClientConfig{URL: url}, bridge.Handlers(),
			gaze.WithLogger(log),
			gaze.WithMetrics(m),
		)
		client.Start()
		// Close the bridge first so Stop never waits on a blocked callback
		defer client.Stop()
		defer bridge.Close()

		mo.Client = client
		mo.Events = bridge.events
	}

	model, err := NewModel(mo)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// openSessionLog creates $XDG_DATA_HOME/glimpsh/logs/glimpsh-<timestamp>.log.
func openSessionLog(now time.Time) (*os.File, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	dir = filepath.Join(dir, "glimpsh", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := filepath.Join(dir, "glimpsh-"+now.Format("20060102-150405")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	return f, nil
}

// serveMetrics exposes m on addr until the returned stop is called.
func serveMetrics(addr string, m *metrics.Manager, log logger.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server failed", logger.Error(err))
		}
	}()
	log.Info(context.Background(), "serving metrics", logger.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printHelp(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `glimpsh: gaze-controlled terminal grid. Look at a pane to focus it.

Usage:
  glimpsh [flags] [command...]

Examples:
  # 2x2 grid driven by the default gaze provider
  glimpsh

  # Simulated gaze, moved with Ctrl+Arrows
  glimpsh --gaze test -r 1 -c 3

  # Drive the panes of the current tmux window instead
  glimpsh --target tmux --screen 2560x1440

Flags:
`)
	fs.SetOutput(os.Stderr)
	fs.PrintDefaults()
}
