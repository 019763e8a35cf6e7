package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/cursork/glimpsh/focus"
)

func TestStatusText(t *testing.T) {
	base := statusInfo{Focused: 1, Panes: 4, Candidate: focus.NoPane, GazeX: 812, GazeY: 40}

	tests := []struct {
		name  string
		edit  func(s *statusInfo)
		icon  string
		wants []string
	}{
		{"disabled", func(s *statusInfo) { s.Conn = connDisabled }, "○", []string{"Gaze: Disabled", "Pane: 2/4"}},
		{"connecting", func(s *statusInfo) { s.Conn = connConnecting }, "◌", []string{"Gaze: Connecting...", "X:  812  Y:   40"}},
		{"connected", func(s *statusInfo) { s.Conn = connConnected; s.Server = "MockGaze" }, "●", []string{"Gaze: MockGaze"}},
		{"connected anonymous", func(s *statusInfo) { s.Conn = connConnected }, "●", []string{"Gaze: Connected"}},
		{"disconnected", func(s *statusInfo) { s.Conn = connDisconnected }, "○", []string{"Gaze: Disconnected"}},
		{"dwelling", func(s *statusInfo) { s.Conn = connConnected; s.Candidate = 2; s.Progress = 1 }, "●", []string{"→3 ▰▰▰▰▰"}},
		{"no focus", func(s *statusInfo) { s.Focused = focus.NoPane }, "○", []string{"Pane: -/4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.edit(&s)
			icon, text := statusText(s)
			if icon != tt.icon {
				t.Errorf("icon = %q, want %q", icon, tt.icon)
			}
			for _, want := range tt.wants {
				if !strings.Contains(text, want) {
					t.Errorf("%q missing %q", text, want)
				}
			}
		})
	}

	_, text := statusText(statusInfo{Conn: connDisabled, Panes: 4})
	if strings.Contains(text, "X:") {
		t.Errorf("coordinates shown while gaze is disabled: %q", text)
	}
}

func TestRenderStatusWidth(t *testing.T) {
	colorEnabled = false
	defer func() { colorEnabled = true }()

	s := statusInfo{Conn: connConnected, Server: "MockGaze", Panes: 4, Candidate: focus.NoPane, Version: "0.1.0"}
	line := renderStatus(s, 100)
	if w := lipgloss.Width(line); w != 100 {
		t.Errorf("width = %d, want 100: %q", w, line)
	}
	if !strings.HasPrefix(line, " glimpsh │ ● Gaze: MockGaze") {
		t.Errorf("unexpected start: %q", line)
	}
	if !strings.HasSuffix(line, "v0.1.0 ") {
		t.Errorf("version not right-aligned: %q", line)
	}

	narrow := renderStatus(s, 20)
	if w := lipgloss.Width(narrow); w != 20 {
		t.Errorf("narrow width = %d, want 20: %q", w, narrow)
	}
}
