package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/hotkeys"
)

// unbindCommand removes a default binding.
const unbindCommand = "none"

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw over the built-in defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	hks, err := applyHotkeys(cfg.Hotkeys, raw.Hotkeys)
	if err != nil {
		return nil, err
	}
	cfg.Hotkeys = hks

	for name, k := range raw.Keywords {
		base := cfg.Keywords[name]
		if k.Type != nil {
			base.Type = *k.Type
		}
		if k.Target != nil {
			base.Target = *k.Target
		}
		cfg.Keywords[name] = base
	}
	for k, v := range raw.Theme {
		cfg.Theme[k] = v
	}
	for k, v := range raw.Tools {
		cfg.Tools[k] = v
	}

	cfg.HistorySize = derefInt(raw.HistorySize, cfg.HistorySize)
	cfg.Gap = derefInt(raw.Gap, cfg.Gap)
	cfg.Margin = derefInt(raw.Margin, cfg.Margin)
	cfg.CenterPercent = derefInt(raw.CenterPercent, cfg.CenterPercent)
	if raw.DuplicatePolicy != nil {
		cfg.DuplicatePolicy = *raw.DuplicatePolicy
	}
	if raw.Bridge != nil {
		cfg.Bridge.MaxPending = derefInt(raw.Bridge.MaxPending, cfg.Bridge.MaxPending)
		cfg.Bridge.LatencyWarnMS = derefInt(raw.Bridge.LatencyWarnMS, cfg.Bridge.LatencyWarnMS)
	}
	if raw.Launcher != nil {
		if raw.Launcher.Backend != nil {
			cfg.Launcher.Backend = *raw.Launcher.Backend
		}
		for k, v := range raw.Launcher.AudioDevices {
			cfg.Launcher.AudioDevices[k] = v
		}
	}
	if raw.Search != nil {
		if raw.Search.Command != nil {
			cfg.Search.Command = *raw.Search.Command
		}
		if raw.Search.ProjectCommand != nil {
			cfg.Search.ProjectCommand = *raw.Search.ProjectCommand
		}
		cfg.Search.Limit = derefInt(raw.Search.Limit, cfg.Search.Limit)
	}
	if raw.NotesFile != nil {
		cfg.NotesFile = *raw.NotesFile
	}
	if raw.ExcludedClasses != nil {
		cfg.ExcludedClasses = raw.ExcludedClasses
	}
	if raw.ExcludedTitles != nil {
		cfg.ExcludedTitles = raw.ExcludedTitles
	}
	if raw.Clipboard != nil {
		if raw.Clipboard.Enabled != nil {
			cfg.Clipboard.Enabled = *raw.Clipboard.Enabled
		}
		cfg.Clipboard.PollMS = derefInt(raw.Clipboard.PollMS, cfg.Clipboard.PollMS)
		cfg.Clipboard.Size = derefInt(raw.Clipboard.Size, cfg.Clipboard.Size)
	}
	if raw.Log != nil {
		if raw.Log.Level != nil {
			cfg.Log.Level = strings.ToLower(*raw.Log.Level)
		}
		if raw.Log.Format != nil {
			cfg.Log.Format = strings.ToLower(*raw.Log.Format)
		}
		if raw.Log.File != nil {
			cfg.Log.File = *raw.Log.File
		}
	}
	cfg.ReconcileIntervalMS = derefInt(raw.ReconcileIntervalMS, cfg.ReconcileIntervalMS)
	if raw.Layouts != nil && raw.Layouts.DB != nil {
		cfg.Layouts.DB = *raw.Layouts.DB
	}
	return cfg, nil
}

// applyHotkeys overlays user entries on the defaults. An entry whose
// combination matches a default replaces it in place; user entries that
// repeat each other are kept so the registry policy decides.
func applyHotkeys(defaults []Hotkey, raw []RawHotkey) ([]Hotkey, error) {
	out := append([]Hotkey(nil), defaults...)
	defaultIndex := make(map[hotkeys.Combo]int, len(defaults))
	for i, hk := range defaults {
		if combo, err := hotkeys.ParseCombo(hk.Keys); err == nil {
			defaultIndex[combo] = i
		}
	}
	removed := make(map[int]bool)

	for i, r := range raw {
		path := fmt.Sprintf("hotkeys.%d", i)
		if r.Keys == nil || strings.TrimSpace(*r.Keys) == "" {
			return nil, &ValidationError{Path: path + ".keys", Err: fmt.Errorf("keys is required")}
		}
		if r.Command == nil || strings.TrimSpace(*r.Command) == "" {
			return nil, &ValidationError{Path: path + ".command", Err: fmt.Errorf("command is required")}
		}
		combo, err := hotkeys.ParseCombo(*r.Keys)
		if err != nil {
			return nil, &ValidationError{Path: path + ".keys", Err: err}
		}
		hk := Hotkey{Keys: combo.String(), Command: strings.TrimSpace(*r.Command), Suppress: true}
		if !strings.EqualFold(hk.Command, unbindCommand) {
			if _, err := command.Parse(hk.Command); err != nil {
				return nil, &ValidationError{Path: path + ".command", Err: err}
			}
		}
		if r.Suppress != nil {
			hk.Suppress = *r.Suppress
		}

		idx, isDefault := defaultIndex[combo]
		switch {
		case strings.EqualFold(hk.Command, unbindCommand):
			if isDefault {
				removed[idx] = true
			}
		case isDefault && !removed[idx]:
			out[idx] = hk
			delete(defaultIndex, combo)
		default:
			out = append(out, hk)
		}
	}

	if len(removed) == 0 {
		return out, nil
	}
	kept := out[:0]
	for i, hk := range out {
		if !removed[i] {
			kept = append(kept, hk)
		}
	}
	return kept, nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
