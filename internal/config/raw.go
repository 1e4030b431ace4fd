package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawHotkey struct {
	Keys     *string `yaml:"keys"`
	Command  *string `yaml:"command"`
	Suppress *bool   `yaml:"suppress"`
}

type RawKeyword struct {
	Type   *string `yaml:"type"`
	Target *string `yaml:"target"`
}

type RawBridge struct {
	MaxPending    *int `yaml:"max_pending"`
	LatencyWarnMS *int `yaml:"latency_warn_ms"`
}

type RawLauncher struct {
	Backend      *string           `yaml:"backend"`
	AudioDevices map[string]string `yaml:"audio_devices"`
}

type RawSearch struct {
	Command        *string `yaml:"command"`
	ProjectCommand *string `yaml:"project_command"`
	Limit          *int    `yaml:"limit"`
}

type RawClipboard struct {
	Enabled *bool `yaml:"enabled"`
	PollMS  *int  `yaml:"poll_ms"`
	Size    *int  `yaml:"size"`
}

type RawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
	File   *string `yaml:"file"`
}

type RawLayouts struct {
	DB *string `yaml:"db"`
}

type RawConfig struct {
	Include             IncludeList           `yaml:"include"`
	Hotkeys             []RawHotkey           `yaml:"hotkeys"`
	Keywords            map[string]RawKeyword `yaml:"keywords"`
	Theme               map[string]string     `yaml:"theme"`
	HistorySize         *int                  `yaml:"history_size"`
	Gap                 *int                  `yaml:"gap"`
	Margin              *int                  `yaml:"margin"`
	CenterPercent       *int                  `yaml:"center_percent"`
	DuplicatePolicy     *string               `yaml:"duplicate_policy"`
	Bridge              *RawBridge            `yaml:"bridge"`
	Launcher            *RawLauncher          `yaml:"launcher"`
	Search              *RawSearch            `yaml:"search"`
	Tools               map[string]string     `yaml:"tools"`
	NotesFile           *string               `yaml:"notes_file"`
	ExcludedClasses     []string              `yaml:"excluded_classes"`
	ExcludedTitles      []string              `yaml:"excluded_titles"`
	Clipboard           *RawClipboard         `yaml:"clipboard"`
	Log                 *RawLog               `yaml:"log"`
	ReconcileIntervalMS *int                  `yaml:"reconcile_interval_ms"`
	Layouts             *RawLayouts           `yaml:"layouts"`
}

// merge overlays o on r. Scalars and lists are replaced, maps merge per key
// and hotkey lists accumulate so later files can rebind combinations.
func (r RawConfig) merge(o RawConfig) RawConfig {
	out := r
	out.Include = nil

	if len(o.Hotkeys) > 0 {
		out.Hotkeys = append(append([]RawHotkey(nil), r.Hotkeys...), o.Hotkeys...)
	}
	if o.Keywords != nil {
		merged := make(map[string]RawKeyword, len(r.Keywords)+len(o.Keywords))
		for k, v := range r.Keywords {
			merged[k] = v
		}
		for k, v := range o.Keywords {
			merged[k] = mergeRawKeyword(merged[k], v)
		}
		out.Keywords = merged
	}
	out.Theme = mergeStringMap(r.Theme, o.Theme)
	out.Tools = mergeStringMap(r.Tools, o.Tools)

	if o.HistorySize != nil {
		out.HistorySize = o.HistorySize
	}
	if o.Gap != nil {
		out.Gap = o.Gap
	}
	if o.Margin != nil {
		out.Margin = o.Margin
	}
	if o.CenterPercent != nil {
		out.CenterPercent = o.CenterPercent
	}
	if o.DuplicatePolicy != nil {
		out.DuplicatePolicy = o.DuplicatePolicy
	}
	if o.Bridge != nil {
		merged := mergeRawBridge(derefRaw(r.Bridge), *o.Bridge)
		out.Bridge = &merged
	}
	if o.Launcher != nil {
		merged := mergeRawLauncher(derefRaw(r.Launcher), *o.Launcher)
		out.Launcher = &merged
	}
	if o.Search != nil {
		merged := mergeRawSearch(derefRaw(r.Search), *o.Search)
		out.Search = &merged
	}
	if o.NotesFile != nil {
		out.NotesFile = o.NotesFile
	}
	if o.ExcludedClasses != nil {
		out.ExcludedClasses = o.ExcludedClasses
	}
	if o.ExcludedTitles != nil {
		out.ExcludedTitles = o.ExcludedTitles
	}
	if o.Clipboard != nil {
		merged := mergeRawClipboard(derefRaw(r.Clipboard), *o.Clipboard)
		out.Clipboard = &merged
	}
	if o.Log != nil {
		merged := mergeRawLog(derefRaw(r.Log), *o.Log)
		out.Log = &merged
	}
	if o.ReconcileIntervalMS != nil {
		out.ReconcileIntervalMS = o.ReconcileIntervalMS
	}
	if o.Layouts != nil {
		merged := derefRaw(r.Layouts)
		if o.Layouts.DB != nil {
			merged.DB = o.Layouts.DB
		}
		out.Layouts = &merged
	}
	return out
}

func derefRaw[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func mergeStringMap(base map[string]string, overlay map[string]string) map[string]string {
	if overlay == nil {
		return base
	}
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func mergeRawKeyword(base RawKeyword, overlay RawKeyword) RawKeyword {
	out := base
	if overlay.Type != nil {
		out.Type = overlay.Type
	}
	if overlay.Target != nil {
		out.Target = overlay.Target
	}
	return out
}

func mergeRawBridge(base RawBridge, overlay RawBridge) RawBridge {
	out := base
	if overlay.MaxPending != nil {
		out.MaxPending = overlay.MaxPending
	}
	if overlay.LatencyWarnMS != nil {
		out.LatencyWarnMS = overlay.LatencyWarnMS
	}
	return out
}

func mergeRawLauncher(base RawLauncher, overlay RawLauncher) RawLauncher {
	out := base
	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	out.AudioDevices = mergeStringMap(base.AudioDevices, overlay.AudioDevices)
	return out
}

func mergeRawSearch(base RawSearch, overlay RawSearch) RawSearch {
	out := base
	if overlay.Command != nil {
		out.Command = overlay.Command
	}
	if overlay.ProjectCommand != nil {
		out.ProjectCommand = overlay.ProjectCommand
	}
	if overlay.Limit != nil {
		out.Limit = overlay.Limit
	}
	return out
}

func mergeRawClipboard(base RawClipboard, overlay RawClipboard) RawClipboard {
	out := base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.PollMS != nil {
		out.PollMS = overlay.PollMS
	}
	if overlay.Size != nil {
		out.Size = overlay.Size
	}
	return out
}

func mergeRawLog(base RawLog, overlay RawLog) RawLog {
	out := base
	if overlay.Level != nil {
		out.Level = overlay.Level
	}
	if overlay.Format != nil {
		out.Format = overlay.Format
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	return out
}
