package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/keyshell/internal/tiling"
)

// Kind partitions commands by the component that executes them.
type Kind int

const (
	KindWindow Kind = iota + 1
	KindLauncher
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindLauncher:
		return "launcher"
	case KindExternal:
		return "external"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is a resolved, executable unit. The set of implementations is
// closed: WindowOp, LauncherOp and ExternalOp.
type Command interface {
	Kind() Kind
	String() string
	sealed()
}

// WindowAction selects a tiling.Manager operation.
type WindowAction int

const (
	ActionPlace WindowAction = iota + 1
	ActionUndo
	ActionUndoOpacity
	ActionRestore
	ActionNextMonitor
	ActionPrevMonitor
	ActionOpacityStep
	ActionSetOpacity
	ActionAlwaysOnTop
	ActionMinimizeOthers
	ActionTileAll
	ActionSaveLayout
	ActionRestoreLayout
)

// OpacityStep is the delta applied by opacity_up and opacity_down.
const OpacityStep = 25

// WindowOp acts on the active window.
type WindowOp struct {
	Action    WindowAction
	Placement tiling.Placement // ActionPlace
	Level     int              // ActionOpacityStep delta or ActionSetOpacity level
	Name      string           // layout name
}

func (WindowOp) Kind() Kind { return KindWindow }

func (WindowOp) sealed() {}

func (op WindowOp) String() string {
	switch op.Action {
	case ActionPlace:
		if op.Placement == nil {
			return "place"
		}
		return "place " + op.Placement.String()
	case ActionUndo:
		return "undo"
	case ActionUndoOpacity:
		return "undo_opacity"
	case ActionRestore:
		return "restore"
	case ActionNextMonitor:
		return "next_monitor"
	case ActionPrevMonitor:
		return "prev_monitor"
	case ActionOpacityStep:
		return fmt.Sprintf("opacity %+d", op.Level)
	case ActionSetOpacity:
		return fmt.Sprintf("opacity_%d", op.Level)
	case ActionAlwaysOnTop:
		return "always_on_top"
	case ActionMinimizeOthers:
		return "minimize_others"
	case ActionTileAll:
		return "tile_all"
	case ActionSaveLayout:
		return "save_layout " + op.Name
	case ActionRestoreLayout:
		return "restore_layout " + op.Name
	}
	return fmt.Sprintf("window_action(%d)", int(op.Action))
}

// LauncherAction selects a Launcher collaborator entry point.
type LauncherAction int

const (
	LauncherShow LauncherAction = iota + 1
	LauncherClipMode
)

// LauncherOp opens the launcher prompt.
type LauncherOp struct {
	Action LauncherAction
}

func (LauncherOp) Kind() Kind { return KindLauncher }

func (LauncherOp) sealed() {}

func (op LauncherOp) String() string {
	if op.Action == LauncherClipMode {
		return "clip"
	}
	return "launcher"
}

// ExternalAction selects a non-window collaborator.
type ExternalAction int

const (
	ExternalCalculate ExternalAction = iota + 1
	ExternalKillPort
	ExternalKillProcess
	ExternalProject
	ExternalVolume
	ExternalMute
	ExternalMicMute
	ExternalMuteApp
	ExternalAudioDevice
	ExternalMedia
	ExternalLock
	ExternalYouTube
	ExternalOCR
	ExternalNote
	ExternalKeyword
	ExternalSearch
)

var externalNames = map[ExternalAction]string{
	ExternalCalculate:   "calc",
	ExternalKillPort:    "kill_port",
	ExternalKillProcess: "kill",
	ExternalProject:     "project",
	ExternalVolume:      "volume",
	ExternalMute:        "mute",
	ExternalMicMute:     "mic",
	ExternalMuteApp:     "mute_app",
	ExternalAudioDevice: "audio",
	ExternalMedia:       "media",
	ExternalLock:        "lock",
	ExternalYouTube:     "youtube",
	ExternalOCR:         "ocr",
	ExternalNote:        "note",
	ExternalKeyword:     "keyword",
	ExternalSearch:      "search",
}

// ExternalOp is executed by a declared collaborator outside the window
// manager.
type ExternalOp struct {
	Action  ExternalAction
	Arg     string
	Number  float64  // calculator result, port, or volume level
	Keyword *Keyword // ExternalKeyword
}

func (ExternalOp) Kind() Kind { return KindExternal }

func (ExternalOp) sealed() {}

func (op ExternalOp) String() string {
	name, ok := externalNames[op.Action]
	if !ok {
		name = fmt.Sprintf("external_action(%d)", int(op.Action))
	}
	if op.Arg != "" {
		return name + " " + op.Arg
	}
	return name
}

// MediaKeys are the accepted ExternalMedia arguments.
var MediaKeys = []string{"next", "prev", "pause", "play"}

// Parse resolves a command name as written in the hotkeys section of the
// config, e.g. "tile_left_half", "grid_top_left", "cell_0_2_2x3",
// "opacity_up" or "run:vol 40". Text after "run:" that no matcher accepts
// becomes a search. Custom keywords are only seen through Router.Parse.
func Parse(name string) (Command, error) {
	return parse(name, nil)
}

func parse(name string, keywords map[string]Keyword) (Command, error) {
	raw := strings.TrimSpace(name)
	name = strings.ToLower(raw)
	if name == "" {
		return nil, fmt.Errorf("empty command name")
	}

	switch name {
	case "undo":
		return WindowOp{Action: ActionUndo}, nil
	case "undo_opacity":
		return WindowOp{Action: ActionUndoOpacity}, nil
	case "restore", "restore_original":
		return WindowOp{Action: ActionRestore}, nil
	case "next_monitor":
		return WindowOp{Action: ActionNextMonitor}, nil
	case "prev_monitor":
		return WindowOp{Action: ActionPrevMonitor}, nil
	case "opacity_up":
		return WindowOp{Action: ActionOpacityStep, Level: OpacityStep}, nil
	case "opacity_down":
		return WindowOp{Action: ActionOpacityStep, Level: -OpacityStep}, nil
	case "always_on_top":
		return WindowOp{Action: ActionAlwaysOnTop}, nil
	case "minimize_others":
		return WindowOp{Action: ActionMinimizeOthers}, nil
	case "tile_all":
		return WindowOp{Action: ActionTileAll}, nil
	case "launcher":
		return LauncherOp{Action: LauncherShow}, nil
	case "clip":
		return LauncherOp{Action: LauncherClipMode}, nil
	case "lock":
		return ExternalOp{Action: ExternalLock}, nil
	case "ocr":
		return ExternalOp{Action: ExternalOCR}, nil
	case "mute":
		return ExternalOp{Action: ExternalMute}, nil
	case "mic":
		return ExternalOp{Action: ExternalMicMute}, nil
	}

	switch {
	case strings.HasPrefix(name, "run:"):
		text := strings.TrimSpace(raw[len("run:"):])
		if text == "" {
			return nil, fmt.Errorf("command %q: launcher text is required", raw)
		}
		cmd, err := matchText(text, keywords)
		if errors.Is(err, ErrNoMatch) {
			return SearchFor(text), nil
		}
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", raw, err)
		}
		return cmd, nil
	case strings.HasPrefix(name, "tile_"):
		mode, err := tiling.ParseTileMode(strings.TrimPrefix(name, "tile_"))
		if err != nil {
			return nil, err
		}
		return WindowOp{Action: ActionPlace, Placement: mode}, nil
	case strings.HasPrefix(name, "grid_"):
		q, err := tiling.ParseQuadrant(strings.TrimPrefix(name, "grid_"))
		if err != nil {
			return nil, err
		}
		return WindowOp{Action: ActionPlace, Placement: q}, nil
	case strings.HasPrefix(name, "cell_"):
		cell, err := parseCell(strings.TrimPrefix(name, "cell_"))
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", raw, err)
		}
		return WindowOp{Action: ActionPlace, Placement: cell}, nil
	case strings.HasPrefix(name, "opacity_"):
		level, err := strconv.Atoi(strings.TrimPrefix(name, "opacity_"))
		if err != nil || level < 0 || level > 255 {
			return nil, fmt.Errorf("command %q: opacity must be 0-255", raw)
		}
		return WindowOp{Action: ActionSetOpacity, Level: level}, nil
	case strings.HasPrefix(name, "media_"):
		key := strings.TrimPrefix(name, "media_")
		for _, k := range MediaKeys {
			if k == key {
				return ExternalOp{Action: ExternalMedia, Arg: key}, nil
			}
		}
		return nil, fmt.Errorf("unknown media key %q", key)
	}
	return nil, fmt.Errorf("unknown command %q", raw)
}

// parseCell reads "<row>_<col>_<rows>x<cols>"; rows and cols default to the
// six-cell 2x3 grid when omitted.
func parseCell(s string) (tiling.GridCell, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 && len(parts) != 3 {
		return tiling.GridCell{}, fmt.Errorf("cell must be row_col or row_col_RxC")
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return tiling.GridCell{}, fmt.Errorf("cell row: %w", err)
	}
	col, err := strconv.Atoi(parts[1])
	if err != nil {
		return tiling.GridCell{}, fmt.Errorf("cell column: %w", err)
	}
	rows, cols := 2, 3
	if len(parts) == 3 {
		dims := strings.SplitN(parts[2], "x", 2)
		if len(dims) != 2 {
			return tiling.GridCell{}, fmt.Errorf("cell grid must be RxC")
		}
		if rows, err = strconv.Atoi(dims[0]); err != nil {
			return tiling.GridCell{}, fmt.Errorf("cell grid rows: %w", err)
		}
		if cols, err = strconv.Atoi(dims[1]); err != nil {
			return tiling.GridCell{}, fmt.Errorf("cell grid columns: %w", err)
		}
	}
	if rows < 1 || cols < 1 || row < 0 || col < 0 || row >= rows || col >= cols {
		return tiling.GridCell{}, fmt.Errorf("cell %d,%d outside %dx%d grid", row, col, rows, cols)
	}
	return tiling.GridCell{Row: row, Col: col, Rows: rows, Cols: cols}, nil
}
