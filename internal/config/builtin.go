package config

// DefaultHotkeys is the built-in binding table. A user entry with the same
// key combination replaces the default; command "none" removes it.
func DefaultHotkeys() []Hotkey {
	return []Hotkey{
		{Keys: "ctrl+alt+left", Command: "tile_left_half", Suppress: true},
		{Keys: "ctrl+alt+right", Command: "tile_right_half", Suppress: true},
		{Keys: "ctrl+alt+up", Command: "tile_top_half", Suppress: true},
		{Keys: "ctrl+alt+down", Command: "tile_bottom_half", Suppress: true},
		{Keys: "ctrl+alt+enter", Command: "tile_maximize", Suppress: true},
		{Keys: "ctrl+alt+c", Command: "tile_center", Suppress: true},
		{Keys: "ctrl+alt+x", Command: "tile_center_small", Suppress: true},
		{Keys: "ctrl+alt+d", Command: "tile_left_third", Suppress: true},
		{Keys: "ctrl+alt+f", Command: "tile_center_third", Suppress: true},
		{Keys: "ctrl+alt+g", Command: "tile_right_third", Suppress: true},
		{Keys: "ctrl+alt+e", Command: "tile_left_two_thirds", Suppress: true},
		{Keys: "ctrl+alt+t", Command: "tile_right_two_thirds", Suppress: true},
		{Keys: "ctrl+alt+u", Command: "grid_top_left", Suppress: true},
		{Keys: "ctrl+alt+i", Command: "grid_top_right", Suppress: true},
		{Keys: "ctrl+alt+j", Command: "grid_bottom_left", Suppress: true},
		{Keys: "ctrl+alt+k", Command: "grid_bottom_right", Suppress: true},
		{Keys: "ctrl+alt+z", Command: "undo", Suppress: true},
		{Keys: "ctrl+alt+backspace", Command: "restore", Suppress: true},
		{Keys: "ctrl+alt+shift+right", Command: "next_monitor", Suppress: true},
		{Keys: "ctrl+alt+shift+left", Command: "prev_monitor", Suppress: true},
		{Keys: "ctrl+alt+shift+up", Command: "opacity_up", Suppress: true},
		{Keys: "ctrl+alt+shift+down", Command: "opacity_down", Suppress: true},
		{Keys: "ctrl+alt+shift+z", Command: "undo_opacity", Suppress: true},
		{Keys: "ctrl+alt+p", Command: "always_on_top", Suppress: true},
		{Keys: "ctrl+alt+m", Command: "minimize_others", Suppress: true},
		{Keys: "ctrl+alt+a", Command: "tile_all", Suppress: true},
		{Keys: "alt+space", Command: "launcher", Suppress: true},
		{Keys: "super+v", Command: "clip", Suppress: true},
		{Keys: "super+shift+s", Command: "ocr", Suppress: true},
	}
}

// DefaultKeywords is the built-in keyword table.
func DefaultKeywords() map[string]Keyword {
	return map[string]Keyword{
		"gs":   {Type: "search", Target: "https://www.google.com/search?q="},
		"gh":   {Type: "url", Target: "https://github.com"},
		"dl":   {Type: "folder", Target: "~/Downloads"},
		"docs": {Type: "folder", Target: "~/Documents"},
	}
}
