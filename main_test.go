package main

import (
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	opts, fs, err := parseFlags([]string{"-r", "3", "--cols=4", "--gaze", "test", "vim", "-u", "NONE"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.rows != 3 || opts.cols != 4 || opts.gaze != "test" {
		t.Errorf("opts = %+v", opts)
	}
	if got := strings.Join(opts.command, " "); got != "vim -u NONE" {
		t.Errorf("command = %q, flags after it belong to it", got)
	}
	if !fs.Changed("rows") || fs.Changed("debug") {
		t.Error("Changed does not reflect the parsed flags")
	}
}

func TestParseFlagsHelp(t *testing.T) {
	opts, _, err := parseFlags([]string{"-h"})
	if err != nil || !opts.help {
		t.Errorf("-h: help=%v err=%v", opts != nil && opts.help, err)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--target", "screen"},
		{"--rows", "many"},
		{"--no-such-flag"},
	} {
		if _, _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) succeeded", args)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	opts, fs, err := parseFlags([]string{"--cols", "3", "--debug", "--screen", "1920x1080", "htop"})
	if err != nil {
		t.Fatal(err)
	}
	if err := applyFlags(&cfg, fs, opts); err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Rows != 2 || cfg.Grid.Cols != 3 {
		t.Errorf("grid = %dx%d, want rows from config and 3 cols", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if cfg.LogLevel != "debug" || cfg.Gaze.Screen != "1920x1080" || cfg.Command != "htop" {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg = DefaultConfig()
	opts, fs, _ = parseFlags([]string{"--rows", "0"})
	if err := applyFlags(&cfg, fs, opts); err == nil {
		t.Error("--rows 0 accepted")
	}
}

func TestResolveGaze(t *testing.T) {
	cfg := DefaultConfig()

	for _, mode := range []string{gazeNone, gazeTest} {
		src, err := resolveGaze(cfg, mode)
		if err != nil || src.mode != mode {
			t.Errorf("resolveGaze(%q) = %+v, %v", mode, src, err)
		}
	}

	src, err := resolveGaze(cfg, "")
	if err != nil || src.mode != "provider" || src.provider.Name != "eyetrax" {
		t.Errorf("default provider = %+v, %v", src, err)
	}

	_, err = resolveGaze(cfg, "tobii")
	if err == nil || !strings.Contains(err.Error(), "Available: none, test, eyetrax") {
		t.Errorf("unknown provider err = %v", err)
	}

	cfg.Gaze.Providers = nil
	src, err = resolveGaze(cfg, "")
	if err != nil || src.mode != gazeNone {
		t.Errorf("no providers = %+v, %v, want keyboard only", src, err)
	}
}
