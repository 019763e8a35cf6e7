package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/x/term"
	"github.com/cursork/glimpsh/logger"
)

const (
	providerStartTimeout = 120 * time.Second
	providerPollInterval = 500 * time.Millisecond
	providerStopGrace    = 2 * time.Second
	defaultProviderPort  = 8001
)

var (
	// ErrProviderNotFound is returned when a provider's binary is not on PATH.
	ErrProviderNotFound = errors.New("gaze provider not found")
	// ErrProviderTimeout is returned when a provider never opens its port.
	ErrProviderTimeout = errors.New("timed out waiting for gaze provider")
)

// providerArgs splits a provider command and appends the grid shape, which
// providers use for cell tracking with their own hysteresis.
func providerArgs(command string, rows, cols int, recalibrate bool) ([]string, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty provider command")
	}
	args = append(args, "--grid", fmt.Sprintf("%dx%d", rows, cols))
	if recalibrate {
		args = append(args, "--recalibrate")
	}
	return args, nil
}

// providerAddr returns the host:port to poll for a provider URL.
func providerAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("provider url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(defaultProviderPort)
	}
	return net.JoinHostPort(host, port), nil
}

// ProviderProcess is a gaze provider launched by glimpsh.
type ProviderProcess struct {
	name  string
	cmd   *exec.Cmd
	done  chan error
	grace time.Duration
	log   logger.Logger
}

// StartProvider launches p's command in the background with output
// discarded.
func StartProvider(p ProviderConfig, rows, cols int, recalibrate bool, log logger.Logger) (*ProviderProcess, error) {
	args, err := providerArgs(p.Command, rows, cols, recalibrate)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Name, err)
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrProviderNotFound, p.Name, args[0])
	}

	cmd := exec.Command(path, args[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start provider %s: %w", p.Name, err)
	}
	log.Info(context.Background(), "provider started",
		logger.String("provider", p.Name),
		logger.String("args", strings.Join(args, " ")),
		logger.Int("pid", cmd.Process.Pid),
	)

	pp := &ProviderProcess{
		name:  p.Name,
		cmd:   cmd,
		done:  make(chan error, 1),
		grace: providerStopGrace,
		log:   log,
	}
	go func() { pp.done <- cmd.Wait() }()
	return pp, nil
}

// Exited reports whether the provider has already quit.
func (pp *ProviderProcess) Exited() bool {
	select {
	case err := <-pp.done:
		pp.done <- err
		return true
	default:
		return false
	}
}

// Stop asks the provider to terminate and kills it if it is still running
// after the grace period.
func (pp *ProviderProcess) Stop() {
	if pp.Exited() {
		return
	}
	_ = pp.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-pp.done:
	case <-time.After(pp.grace):
		pp.log.Warn(context.Background(), "provider ignored SIGTERM, killing", logger.String("provider", pp.name))
		_ = pp.cmd.Process.Kill()
		<-pp.done
	}
}

// waitForPort polls addr until it accepts a TCP connection.
func waitForPort(ctx context.Context, addr string, poll time.Duration) error {
	var d net.Dialer
	for {
		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		conn, err := d.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrProviderTimeout, addr)
			}
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// spin runs wait while animating label on w. The line is cleared when wait
// returns. Nothing is drawn unless w is a terminal.
func spin(ctx context.Context, w io.Writer, label string, wait func(context.Context) error) error {
	f, ok := w.(term.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return wait(ctx)
	}

	result := make(chan error, 1)
	go func() { result <- wait(ctx) }()

	s := spinner.MiniDot
	ticker := time.NewTicker(s.FPS)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(w, "\r%s %s", s.Frames[i%len(s.Frames)], label)
		select {
		case err := <-result:
			fmt.Fprint(w, "\r\x1b[2K")
			return err
		case <-ticker.C:
		}
	}
}

// launchProvider starts p and blocks until it is accepting connections.
func launchProvider(ctx context.Context, p ProviderConfig, rows, cols int, recalibrate bool, log logger.Logger) (*ProviderProcess, error) {
	addr, err := providerAddr(p.URL)
	if err != nil {
		return nil, err
	}
	pp, err := StartProvider(p, rows, cols, recalibrate, log)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Starting %s (grid: %dx%d)...\n", p.Name, rows, cols)
	if recalibrate {
		fmt.Println("Complete the calibration windows, then glimpsh will start.")
	}

	waitCtx, cancel := context.WithTimeout(ctx, providerStartTimeout)
	defer cancel()
	label := fmt.Sprintf("Starting %s, loading models and camera...", p.Name)
	if err := spin(waitCtx, os.Stdout, label, func(ctx context.Context) error {
		return waitForPort(ctx, addr, providerPollInterval)
	}); err != nil {
		pp.Stop()
		return nil, fmt.Errorf("provider %s: %w", p.Name, err)
	}
	return pp, nil
}
