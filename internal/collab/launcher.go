package collab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/palette"
)

// ErrCancelled is returned when the user dismisses the launcher.
var ErrCancelled = palette.ErrCancelled

const commandsAction = "__commands__"

// LauncherResult is what the user chose. Exactly one field is set: Text for
// typed launcher input, Command for a command name picked from the menu.
type LauncherResult struct {
	Text    string
	Command string
}

// Launcher shows the free-text prompt and clip mode through a palette
// backend. Show and OpenClipMode block until the user answers and must run
// off the owner thread.
type Launcher struct {
	backend  palette.Backend
	keywords []command.Keyword
	menu     []palette.MenuItem
	message  string
}

// NewLauncher creates a launcher. theme["message"], when set, is shown in
// the palette message bar.
func NewLauncher(backend palette.Backend, keywords []command.Keyword, theme map[string]string) *Launcher {
	sorted := append([]command.Keyword(nil), keywords...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Launcher{
		backend:  backend,
		keywords: sorted,
		menu:     CommandMenu(),
		message:  theme["message"],
	}
}

// Show prompts for launcher text. Picking "Window commands" opens the
// command menu instead.
func (l *Launcher) Show(ctx context.Context) (LauncherResult, error) {
	if err := ctx.Err(); err != nil {
		return LauncherResult{}, err
	}
	text, err := l.backend.Prompt("keyshell", l.suggestions(), l.message)
	if err != nil {
		return LauncherResult{}, err
	}
	if text != commandsAction {
		return LauncherResult{Text: text}, nil
	}

	menu := palette.NewMenu(l.backend, l.menu)
	menu.SetMessage(l.message)
	action, err := menu.Show()
	if err != nil {
		return LauncherResult{}, err
	}
	return LauncherResult{Command: action}, nil
}

// OpenClipMode lists clipboard history, newest first, and returns the
// chosen entry.
func (l *Launcher) OpenClipMode(ctx context.Context, entries []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("clipboard history is empty")
	}
	items := make([]palette.Item, 0, len(entries))
	for i, e := range entries {
		items = append(items, palette.Item{
			Label: clipLabel(e),
			Info:  fmt.Sprintf("%d", i),
			Icon:  "edit-paste",
		})
	}
	res, err := l.backend.Show("clipboard", items, l.message)
	if err != nil {
		return "", err
	}
	for i, item := range items {
		if item.Info == res.Item.Info {
			return entries[i], nil
		}
	}
	return "", fmt.Errorf("clipboard entry %q vanished", res.Item.Label)
}

// Pick shows a fixed list, e.g. search results, and returns the chosen
// value.
func (l *Launcher) Pick(ctx context.Context, prompt string, values []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", fmt.Errorf("no results")
	}
	items := make([]palette.Item, len(values))
	for i, v := range values {
		items[i] = palette.Item{Label: v, Action: v}
	}
	res, err := l.backend.Show(prompt, items, l.message)
	if err != nil {
		return "", err
	}
	return res.Item.Action, nil
}

func (l *Launcher) suggestions() []palette.Item {
	items := []palette.Item{{Label: "Window commands", Action: commandsAction, Icon: "preferences-system-windows"}}
	for _, k := range l.keywords {
		items = append(items, palette.Item{
			Label: k.Name + " ",
			Icon:  keywordIcon(k.Type),
			Meta:  k.Target,
		})
	}
	return items
}

func keywordIcon(t command.KeywordType) string {
	switch t {
	case command.KeywordFolder:
		return "folder"
	case command.KeywordFile, command.KeywordNote:
		return "text-x-generic"
	case command.KeywordCmd:
		return "utilities-terminal"
	case command.KeywordCopy:
		return "edit-copy"
	}
	return "web-browser"
}

func clipLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const maxLen = 80
	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-1]) + "…"
	}
	return s
}

// IsCancelled reports whether err means the user dismissed a prompt.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// CommandMenu is the window command hierarchy offered by the launcher.
func CommandMenu() []palette.MenuItem {
	return []palette.MenuItem{
		{Label: "Tile", Icon: "view-split-left-right", Submenu: []palette.MenuItem{
			{Label: "Left half", Action: "tile_left_half"},
			{Label: "Right half", Action: "tile_right_half"},
			{Label: "Top half", Action: "tile_top_half"},
			{Label: "Bottom half", Action: "tile_bottom_half"},
			{Label: "Maximize", Action: "tile_maximize"},
			{Label: "Center", Action: "tile_center"},
			{Label: "Center small", Action: "tile_center_small"},
			{Label: "Left third", Action: "tile_left_third"},
			{Label: "Center third", Action: "tile_center_third"},
			{Label: "Right third", Action: "tile_right_third"},
			{Label: "Left two thirds", Action: "tile_left_two_thirds"},
			{Label: "Right two thirds", Action: "tile_right_two_thirds"},
			{Label: "All windows", Action: "tile_all"},
		}},
		{Label: "Grid", Icon: "view-grid", Submenu: []palette.MenuItem{
			{Label: "Top left", Action: "grid_top_left"},
			{Label: "Top right", Action: "grid_top_right"},
			{Label: "Bottom left", Action: "grid_bottom_left"},
			{Label: "Bottom right", Action: "grid_bottom_right"},
		}},
		{Label: "Monitor", Icon: "video-display", Submenu: []palette.MenuItem{
			{Label: "Next monitor", Action: "next_monitor"},
			{Label: "Previous monitor", Action: "prev_monitor"},
		}},
		{Label: "Transparency", Icon: "preferences-desktop-display", Submenu: []palette.MenuItem{
			{Label: "More opaque", Action: "opacity_up"},
			{Label: "More transparent", Action: "opacity_down"},
			{Label: "Opaque", Action: "opacity_255"},
			{Label: "Undo transparency", Action: "undo_opacity"},
		}},
		{Label: "Always on top", Action: "always_on_top", Icon: "go-top"},
		{Label: "Minimize others", Action: "minimize_others", Icon: "window-minimize"},
		{Label: "Undo", Action: "undo", Icon: "edit-undo"},
		{Label: "Restore original", Action: "restore", Icon: "edit-undo"},
	}
}
