package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/cursork/glimpsh/logger"
)

func TestProviderArgs(t *testing.T) {
	args, err := providerArgs("eyetrax  --filter kalman", 2, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"eyetrax", "--filter", "kalman", "--grid", "2x3"}
	if !slices.Equal(args, want) {
		t.Errorf("args = %q, want %q", args, want)
	}

	args, _ = providerArgs("eyetrax", 1, 1, true)
	if args[len(args)-1] != "--recalibrate" {
		t.Errorf("recalibrate flag missing: %q", args)
	}

	if _, err := providerArgs("   ", 2, 2, false); err == nil {
		t.Error("blank command accepted")
	}
}

func TestProviderAddr(t *testing.T) {
	tests := map[string]string{
		"ws://127.0.0.1:9000/":  "127.0.0.1:9000",
		"ws://localhost/":       "localhost:8001",
		"ws://:7000/":           "127.0.0.1:7000",
		"wss://[::1]:8443/gaze": "[::1]:8443",
	}
	for in, want := range tests {
		got, err := providerAddr(in)
		if err != nil || got != want {
			t.Errorf("providerAddr(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := providerAddr("ws://%zz"); err == nil {
		t.Error("malformed url accepted")
	}
}

func TestWaitForPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := waitForPort(ctx, addr, 10*time.Millisecond); err != nil {
		t.Errorf("open port: %v", err)
	}

	ln.Close()
	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := waitForPort(ctx, addr, 10*time.Millisecond); !errors.Is(err, ErrProviderTimeout) {
		t.Errorf("closed port: err = %v, want ErrProviderTimeout", err)
	}
}

func TestSpinWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	want := errors.New("boom")
	err := spin(context.Background(), &out, "Starting", func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if out.Len() != 0 {
		t.Errorf("spinner drew to a non-terminal: %q", out.String())
	}
}

func TestStartProviderNotFound(t *testing.T) {
	p := ProviderConfig{Name: "ghost", Command: "glimpsh-no-such-provider --flag"}
	_, err := StartProvider(p, 2, 2, false, logger.Nop())
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestProviderStop(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := writeFile(t, t.TempDir(), "fake-provider", "#!/bin/sh\nexec sleep 30\n")
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatal(err)
	}

	pp, err := StartProvider(ProviderConfig{Name: "fake", Command: script}, 2, 2, false, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if pp.Exited() {
		t.Fatal("provider exited immediately")
	}

	start := time.Now()
	pp.Stop()
	if !pp.Exited() {
		t.Error("provider still running after Stop")
	}
	if elapsed := time.Since(start); elapsed > providerStopGrace+time.Second {
		t.Errorf("Stop took %v", elapsed)
	}
	pp.Stop()
}
