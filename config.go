package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/cursork/glimpsh/logger"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed glimpsh.default.yaml
var defaultConfigYAML []byte

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

const envPrefix = "GLIMPSH_"

// Config holds all glimpsh configuration
type Config struct {
	LogLevel string        `koanf:"log_level"`
	Command  string        `koanf:"command"`
	Grid     GridConfig    `koanf:"grid"`
	Gaze     GazeConfig    `koanf:"gaze"`
	Metrics  MetricsConfig `koanf:"metrics"`
	Keys     KeyMapConfig  `koanf:"keys"`
}

type GridConfig struct {
	Rows int `koanf:"rows"`
	Cols int `koanf:"cols"`
}

type GazeConfig struct {
	DwellTimeMS     int                       `koanf:"dwell_time_ms"`
	DefaultProvider string                    `koanf:"default_provider"`
	Screen          string                    `koanf:"screen"`
	Providers       map[string]ProviderConfig `koanf:"providers"`
}

// ProviderConfig is a gaze source. Command, if set, is launched before
// connecting.
type ProviderConfig struct {
	Name    string `koanf:"-"`
	URL     string `koanf:"url"`
	Command string `koanf:"command"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// KeyMapConfig defines key bindings in config file format
type KeyMapConfig struct {
	ToggleDebug    []string `koanf:"toggle_debug"`
	CommandPalette []string `koanf:"command_palette"`
	CyclePane      []string `koanf:"cycle_pane"`
	ClosePane      []string `koanf:"close_pane"`
	Quit           []string `koanf:"quit"`
	Help           []string `koanf:"help"`
	FocusPane      []string `koanf:"focus_pane"`
	GazeUp         []string `koanf:"gaze_up"`
	GazeDown       []string `koanf:"gaze_down"`
	GazeLeft       []string `koanf:"gaze_left"`
	GazeRight      []string `koanf:"gaze_right"`
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() Config {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfigYAML), yaml.Parser()); err != nil {
		panic("embedded default config is invalid: " + err.Error())
	}
	cfg, err := unmarshal(k)
	if err != nil {
		panic("embedded default config is invalid: " + err.Error())
	}
	return cfg
}

// LoadConfig layers the embedded defaults, the YAML file at path (if it
// exists) and GLIMPSH_* environment variables, then validates the result.
// Providers listed in the file replace the default providers.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfigYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fk := koanf.New(".")
			if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
			if fk.Exists("gaze.providers") {
				k.Delete("gaze.providers")
			}
			if err := k.Merge(fk); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func unmarshal(k *koanf.Koanf) (Config, error) {
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	for name, p := range cfg.Gaze.Providers {
		p.Name = name
		cfg.Gaze.Providers[name] = p
	}
	return cfg, nil
}

// envKey maps GLIMPSH_GRID_ROWS to grid.rows and GLIMPSH_LOG_LEVEL to
// log_level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"grid", "gaze", "metrics", "keys"} {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok {
			return section + "." + rest
		}
	}
	return s
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Grid.Rows < 1:
		return fmt.Errorf("%w: grid.rows must be at least 1, got %d", ErrInvalidConfig, c.Grid.Rows)
	case c.Grid.Cols < 1:
		return fmt.Errorf("%w: grid.cols must be at least 1, got %d", ErrInvalidConfig, c.Grid.Cols)
	case c.Gaze.DwellTimeMS < 0:
		return fmt.Errorf("%w: gaze.dwell_time_ms must not be negative, got %d", ErrInvalidConfig, c.Gaze.DwellTimeMS)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, _, err := parseScreen(c.Gaze.Screen); err != nil {
		return fmt.Errorf("%w: gaze.screen: %v", ErrInvalidConfig, err)
	}
	for name, p := range c.Gaze.Providers {
		if p.URL == "" {
			return fmt.Errorf("%w: provider %q has no url", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Provider returns the named provider. An empty name selects the default
// provider, falling back to the first provider by name.
func (c Config) Provider(name string) (ProviderConfig, bool) {
	if name == "" {
		name = c.Gaze.DefaultProvider
	}
	if p, ok := c.Gaze.Providers[name]; ok {
		return p, true
	}
	if name != c.Gaze.DefaultProvider && name != "" {
		return ProviderConfig{}, false
	}
	names := c.ProviderNames()
	if len(names) == 0 {
		return ProviderConfig{}, false
	}
	return c.Gaze.Providers[names[0]], true
}

// ProviderNames returns configured provider names in sorted order.
func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Gaze.Providers))
	for name := range c.Gaze.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseScreen parses "WIDTHxHEIGHT".
func parseScreen(s string) (float64, float64, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("bad width in %q", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("bad height in %q", s)
	}
	return float64(width), float64(height), nil
}

// ConfigPath returns $XDG_CONFIG_HOME/glimpsh/config.yaml.
func ConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "glimpsh", "config.yaml")
}

// WriteDefaultConfig writes the default configuration to path, creating
// parent directories. It reports whether a file was written.
func WriteDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, defaultConfigYAML, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// ToKeyMap converts config to KeyMap
func (c *Config) ToKeyMap() KeyMap {
	return KeyMap{
		ToggleDebug:    binding(c.Keys.ToggleDebug, "debug"),
		CommandPalette: binding(c.Keys.CommandPalette, "commands"),
		CyclePane:      binding(c.Keys.CyclePane, "cycle overlay"),
		ClosePane:      binding(c.Keys.ClosePane, "close overlay"),
		Quit:           binding(c.Keys.Quit, "quit"),
		Help:           binding(c.Keys.Help, "help"),
		FocusPane:      bindingHelp(c.Keys.FocusPane, "alt+1-9", "focus pane"),
		GazeUp:         binding(c.Keys.GazeUp, "gaze up"),
		GazeDown:       binding(c.Keys.GazeDown, "gaze down"),
		GazeLeft:       binding(c.Keys.GazeLeft, "gaze left"),
		GazeRight:      binding(c.Keys.GazeRight, "gaze right"),
	}
}

// binding creates a key binding, returning disabled binding if keys is empty
func binding(keys []string, help string) key.Binding {
	if len(keys) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	return bindingHelp(keys, keys[0], help)
}

func bindingHelp(keys []string, label, help string) key.Binding {
	if len(keys) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(label, help),
	)
}
