package mcp

import "time"

// RunTextInput is the input for the run_text tool.
type RunTextInput struct {
	Text string `json:"text" jsonschema:"Launcher text, e.g. 'vol 40', 'kp 3000', '2+2' or a search query"`
}

// RunCommandInput is the input for the run_command tool.
type RunCommandInput struct {
	Name string `json:"name" jsonschema:"Command name as used in the hotkeys config, e.g. tile_left_half, grid_top_right, next_monitor"`
}

// CommandOutput reports what a command did.
type CommandOutput struct {
	Command string `json:"command"`
	Result  string `json:"result,omitempty"`
}

// EmptyInput is used by tools without arguments.
type EmptyInput struct{}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Bindings       int    `json:"bindings"`
	TrackedWindows int    `json:"tracked_windows"`
	Monitors       int    `json:"monitors"`
	EventsDropped  uint64 `json:"events_dropped"`
	Pending        int    `json:"pending"`
}

// MonitorInfo describes one monitor work-area.
type MonitorInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// LayoutInput names a saved layout.
type LayoutInput struct {
	Name string `json:"name" jsonschema:"Layout name"`
}

// LayoutOutput reports how many windows a layout operation touched.
type LayoutOutput struct {
	Name    string `json:"name"`
	Windows int    `json:"windows"`
}

// LayoutInfo summarizes a saved layout.
type LayoutInfo struct {
	Name    string    `json:"name"`
	Windows int       `json:"windows"`
	SavedAt time.Time `json:"saved_at"`
}

// ListLayoutsOutput is the output for the list_layouts tool.
type ListLayoutsOutput struct {
	Layouts []LayoutInfo `json:"layouts"`
}
