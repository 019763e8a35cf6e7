// Package uitest provides TUI testing via tmux
package uitest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cursork/glimpsh/tmux"
)

// ErrNoTmux is returned when the tmux binary is not installed.
var ErrNoTmux = errors.New("tmux not installed")

// RequireTmux reports whether tmux is available to drive sessions.
func RequireTmux() error {
	if _, err := exec.LookPath("tmux"); err != nil {
		return ErrNoTmux
	}
	return nil
}

// Session wraps a tmux session for TUI testing. Each session runs on its own
// server socket so tests never touch the user's tmux.
type Session struct {
	Name   string
	Width  int
	Height int
	Socket string

	runner tmux.ExecRunner
}

// NewSession creates a new tmux session running the given command
func NewSession(name string, width, height int, cmd string) (*Session, error) {
	socket := filepath.Join(os.TempDir(), "glimpsh-uitest-"+name)
	s := &Session{
		Name:   name,
		Width:  width,
		Height: height,
		Socket: socket,
		runner: tmux.ExecRunner{Socket: socket},
	}

	// Kill any leftover server from an earlier run
	s.run("kill-server")

	_, err := s.run(
		"new-session", "-d",
		"-s", name,
		"-x", strconv.Itoa(width),
		"-y", strconv.Itoa(height),
		cmd,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tmux session: %w", err)
	}
	return s, nil
}

func (s *Session) run(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.runner.Run(ctx, args...)
}

// Close kills the session's tmux server
func (s *Session) Close() error {
	_, err := s.run("kill-server")
	os.Remove(s.Socket)
	return err
}

// SendKeys sends keys to the tmux session
func (s *Session) SendKeys(keys ...string) error {
	_, err := s.run(append([]string{"send-keys", "-t", s.Name}, keys...)...)
	return err
}

// SendText sends text literally, without key name lookup
func (s *Session) SendText(text string) error {
	_, err := s.run("send-keys", "-t", s.Name, "-l", text)
	return err
}

// Capture returns the current pane content
func (s *Session) Capture() (string, error) {
	out, err := s.run("capture-pane", "-t", s.Name, "-p")
	if err != nil {
		return "", fmt.Errorf("failed to capture pane: %w", err)
	}
	return string(out), nil
}

// WaitFor waits until the output contains the pattern or timeout
func (s *Session) WaitFor(pattern string, timeout time.Duration) error {
	return s.waitUntil(timeout, fmt.Sprintf("%q", pattern), func(content string) bool {
		return strings.Contains(content, pattern)
	})
}

// WaitForRegex waits until the output matches the regex or timeout
func (s *Session) WaitForRegex(pattern string, timeout time.Duration) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	return s.waitUntil(timeout, "pattern "+re.String(), re.MatchString)
}

func (s *Session) waitUntil(timeout time.Duration, what string, match func(string) bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		content, err := s.Capture()
		if err != nil {
			return err
		}
		if match(content) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	content, _ := s.Capture()
	return fmt.Errorf("timeout waiting for %s\nCurrent content:\n%s", what, content)
}

// Contains checks if the current output contains the pattern
func (s *Session) Contains(pattern string) (bool, error) {
	content, err := s.Capture()
	if err != nil {
		return false, err
	}
	return strings.Contains(content, pattern), nil
}

// ContainsRegex checks if the current output matches the regex
func (s *Session) ContainsRegex(pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	content, err := s.Capture()
	if err != nil {
		return false, err
	}
	return re.MatchString(content), nil
}
