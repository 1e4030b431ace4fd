package palette

import (
	"strconv"
	"strings"
)

const (
	backAction    = "menu:back"
	submenuAction = "menu:open:"
)

// MenuItem is a node in a command menu. Leaves carry an Action; parents
// carry a Submenu.
type MenuItem struct {
	Label   string
	Action  string
	Icon    string
	Submenu []MenuItem
}

// IsParent reports whether the item opens a submenu.
func (m MenuItem) IsParent() bool {
	return len(m.Submenu) > 0
}

// Menu walks a MenuItem tree with a Backend.
type Menu struct {
	backend Backend
	root    []MenuItem
	prompt  string
	message string
}

func NewMenu(backend Backend, items []MenuItem) *Menu {
	return &Menu{backend: backend, root: items, prompt: "keyshell"}
}

// SetMessage sets the text shown in the launcher's message bar.
func (m *Menu) SetMessage(msg string) {
	m.message = msg
}

// Show returns the action of the chosen leaf. Dismissing the launcher at
// any level returns ErrCancelled.
func (m *Menu) Show() (string, error) {
	type level struct {
		title string
		items []MenuItem
	}
	stack := []level{{title: m.prompt, items: m.root}}

	for {
		top := stack[len(stack)-1]
		res, err := m.backend.Show(top.title, menuRows(top.items, len(stack) > 1), m.message)
		if err != nil {
			return "", err
		}

		action := res.Item.Action
		switch {
		case action == backAction:
			stack = stack[:len(stack)-1]
		case strings.HasPrefix(action, submenuAction):
			i, err := strconv.Atoi(strings.TrimPrefix(action, submenuAction))
			if err != nil || i < 0 || i >= len(top.items) || !top.items[i].IsParent() {
				continue
			}
			stack = append(stack, level{title: top.items[i].Label, items: top.items[i].Submenu})
		case action != "":
			return action, nil
		}
	}
}

func menuRows(items []MenuItem, nested bool) []Item {
	rows := make([]Item, 0, len(items)+1)
	if nested {
		rows = append(rows, Item{Label: "← Back", Action: backAction, Icon: "go-previous"})
	}
	for i, item := range items {
		row := Item{Label: item.Label, Action: item.Action, Icon: item.Icon}
		if item.IsParent() {
			row.Label += " →"
			row.Action = submenuAction + strconv.Itoa(i)
			if row.Icon == "" {
				row.Icon = "folder"
			}
		}
		rows = append(rows, row)
	}
	return rows
}
