package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/hotkeys"
	"github.com/1broseidon/keyshell/internal/tiling"
	"gopkg.in/yaml.v3"
)

// Hotkey binds one key combination to a command name.
type Hotkey struct {
	Keys     string `yaml:"keys"`
	Command  string `yaml:"command"`
	Suppress bool   `yaml:"suppress"`
}

// Keyword is a custom launcher keyword target.
type Keyword struct {
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
}

type BridgeConfig struct {
	MaxPending    int `yaml:"max_pending"`
	LatencyWarnMS int `yaml:"latency_warn_ms"`
}

type LauncherConfig struct {
	Backend      string            `yaml:"backend"`
	AudioDevices map[string]string `yaml:"audio_devices,omitempty"`
}

type SearchConfig struct {
	Command        string `yaml:"command"`
	ProjectCommand string `yaml:"project_command"`
	Limit          int    `yaml:"limit"`
}

type ClipboardConfig struct {
	Enabled bool `yaml:"enabled"`
	PollMS  int  `yaml:"poll_ms"`
	Size    int  `yaml:"size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

type LayoutsConfig struct {
	DB string `yaml:"db,omitempty"`
}

// Config holds the application configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Hotkeys             []Hotkey           `yaml:"hotkeys"`
	Keywords            map[string]Keyword `yaml:"keywords"`
	Theme               map[string]string  `yaml:"theme,omitempty"`
	HistorySize         int                `yaml:"history_size"`
	Gap                 int                `yaml:"gap"`
	Margin              int                `yaml:"margin"`
	CenterPercent       int                `yaml:"center_percent"`
	DuplicatePolicy     string             `yaml:"duplicate_policy"`
	Bridge              BridgeConfig       `yaml:"bridge"`
	Launcher            LauncherConfig     `yaml:"launcher"`
	Search              SearchConfig       `yaml:"search"`
	Tools               map[string]string  `yaml:"tools,omitempty"`
	NotesFile           string             `yaml:"notes_file,omitempty"`
	ExcludedClasses     []string           `yaml:"excluded_classes"`
	ExcludedTitles      []string           `yaml:"excluded_titles"`
	Clipboard           ClipboardConfig    `yaml:"clipboard"`
	Log                 LogConfig          `yaml:"log"`
	ReconcileIntervalMS int                `yaml:"reconcile_interval_ms"`
	Layouts             LayoutsConfig      `yaml:"layouts"`
}

func DefaultConfig() *Config {
	return &Config{
		Hotkeys:         DefaultHotkeys(),
		Keywords:        DefaultKeywords(),
		Theme:           map[string]string{},
		HistorySize:     tiling.DefaultHistorySize,
		CenterPercent:   60,
		DuplicatePolicy: "overwrite",
		Bridge: BridgeConfig{
			MaxPending:    4096,
			LatencyWarnMS: 30,
		},
		Launcher: LauncherConfig{
			Backend: "auto",
			AudioDevices: map[string]string{
				"head": "Headphones",
				"spk":  "Speakers",
			},
		},
		Search: SearchConfig{
			Command:        "locate -i -l {limit} {query}",
			ProjectCommand: "code {path}",
			Limit:          20,
		},
		Tools:           map[string]string{},
		ExcludedClasses: []string{},
		ExcludedTitles:  []string{},
		Clipboard: ClipboardConfig{
			Enabled: true,
			PollMS:  500,
			Size:    20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		ReconcileIntervalMS: 2000,
	}
}

// LayoutOptions returns the geometry options for the window manager.
func (c *Config) LayoutOptions() tiling.Options {
	return tiling.Options{Gap: c.Gap, Margin: c.Margin, CenterPercent: c.CenterPercent}
}

// CommandKeywords converts the keyword table for the command router.
func (c *Config) CommandKeywords() []command.Keyword {
	out := make([]command.Keyword, 0, len(c.Keywords))
	for _, name := range sortedKeys(c.Keywords) {
		k := c.Keywords[name]
		kt, err := command.ParseKeywordType(k.Type)
		if err != nil {
			continue
		}
		out = append(out, command.Keyword{Name: name, Type: kt, Target: k.Target})
	}
	return out
}

// Policy returns the duplicate binding policy.
func (c *Config) Policy() hotkeys.Policy {
	p, err := hotkeys.ParsePolicy(c.DuplicatePolicy)
	if err != nil {
		return hotkeys.PolicyOverwrite
	}
	return p
}

// LayoutsDBPath returns the saved-layout database path, defaulting under
// the XDG data dir.
func (c *Config) LayoutsDBPath() (string, error) {
	if c.Layouts.DB != "" {
		return expandHome(c.Layouts.DB)
	}
	return DataFile("layouts.db")
}

// NotesPath returns the quick notes file path.
func (c *Config) NotesPath() (string, error) {
	if c.NotesFile != "" {
		return expandHome(c.NotesFile)
	}
	return DataFile("notes.txt")
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func (c *Config) Validate() error {
	for i, hk := range c.Hotkeys {
		path := fmt.Sprintf("hotkeys.%d", i)
		if _, err := hotkeys.ParseCombo(hk.Keys); err != nil {
			return &ValidationError{Path: path + ".keys", Err: err}
		}
		if _, err := command.Parse(hk.Command); err != nil {
			return &ValidationError{Path: path + ".command", Err: err}
		}
	}
	for name, k := range c.Keywords {
		if strings.TrimSpace(name) == "" || strings.Contains(name, " ") {
			return &ValidationError{Path: "keywords", Err: fmt.Errorf("keyword %q must be a single word", name)}
		}
		if _, err := command.ParseKeywordType(k.Type); err != nil {
			return &ValidationError{Path: "keywords." + name + ".type", Err: err}
		}
		if strings.TrimSpace(k.Target) == "" {
			return &ValidationError{Path: "keywords." + name + ".target", Err: fmt.Errorf("target must not be empty")}
		}
	}
	if c.HistorySize < 1 {
		return &ValidationError{Path: "history_size", Err: fmt.Errorf("history_size must be >= 1")}
	}
	if c.Gap < 0 {
		return &ValidationError{Path: "gap", Err: fmt.Errorf("gap must be >= 0")}
	}
	if c.Margin < 0 {
		return &ValidationError{Path: "margin", Err: fmt.Errorf("margin must be >= 0")}
	}
	if c.CenterPercent < 10 || c.CenterPercent > 100 {
		return &ValidationError{Path: "center_percent", Err: fmt.Errorf("center_percent must be between 10 and 100")}
	}
	if _, err := hotkeys.ParsePolicy(c.DuplicatePolicy); err != nil {
		return &ValidationError{Path: "duplicate_policy", Err: err}
	}
	if c.Bridge.MaxPending < 1 {
		return &ValidationError{Path: "bridge.max_pending", Err: fmt.Errorf("max_pending must be >= 1")}
	}
	if c.Bridge.LatencyWarnMS < 1 {
		return &ValidationError{Path: "bridge.latency_warn_ms", Err: fmt.Errorf("latency_warn_ms must be >= 1")}
	}
	switch c.Launcher.Backend {
	case "auto", "rofi", "fuzzel", "dmenu", "wofi":
	default:
		return &ValidationError{Path: "launcher.backend", Err: fmt.Errorf("backend must be one of: auto, rofi, fuzzel, dmenu, wofi")}
	}
	if strings.TrimSpace(c.Search.Command) == "" {
		return &ValidationError{Path: "search.command", Err: fmt.Errorf("search command must not be empty")}
	}
	if c.Search.Limit < 1 {
		return &ValidationError{Path: "search.limit", Err: fmt.Errorf("limit must be >= 1")}
	}
	for name, tmpl := range c.Tools {
		if strings.TrimSpace(tmpl) == "" {
			return &ValidationError{Path: "tools." + name, Err: fmt.Errorf("tool command must not be empty")}
		}
	}
	if c.Clipboard.PollMS < 50 {
		return &ValidationError{Path: "clipboard.poll_ms", Err: fmt.Errorf("poll_ms must be >= 50")}
	}
	if c.Clipboard.Size < 1 {
		return &ValidationError{Path: "clipboard.size", Err: fmt.Errorf("size must be >= 1")}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return &ValidationError{Path: "log.format", Err: fmt.Errorf("format must be console or json")}
	}
	if c.ReconcileIntervalMS < 100 {
		return &ValidationError{Path: "reconcile_interval_ms", Err: fmt.Errorf("reconcile_interval_ms must be >= 100")}
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
