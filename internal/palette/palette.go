// Package palette drives dmenu-style launchers (rofi, fuzzel, wofi, dmenu)
// for the keyshell prompt, clip mode and the window command menu.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the user dismisses the palette.
var ErrCancelled = errors.New("palette cancelled")

// Item is one row in a palette list.
type Item struct {
	Label  string
	Action string // returned by Prompt when the row is picked
	Icon   string
	Info   string // hidden payload, e.g. a history index
	Meta   string // extra search terms
}

// SelectResult is the row the user picked.
type SelectResult struct {
	Item Item
}

// Capabilities describes what a launcher program can render.
type Capabilities struct {
	Icons       bool
	Markup      bool
	IndexOutput bool // prints the row index instead of its text
	MessageBar  bool
}

// Backend shows rows to the user and reports the choice. Calls block until
// the launcher exits.
type Backend interface {
	// Show offers a fixed list and returns the picked item.
	Show(prompt string, items []Item, message string) (SelectResult, error)
	// Prompt offers an editable line with suggestions and returns the typed
	// text, or the picked suggestion's Action when it has one.
	Prompt(prompt string, suggestions []Item, message string) (string, error)
	Capabilities() Capabilities
}

// priority is the order used by auto detection.
var priority = []string{"rofi", "fuzzel", "wofi", "dmenu"}

var lookPath = exec.LookPath

// DetectBackend returns the first launcher program found in PATH.
func DetectBackend() (string, error) {
	for _, name := range priority {
		if _, err := lookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no launcher found in PATH (looked for %s)", strings.Join(priority, ", "))
}

// NewBackend returns the named launcher, or the first one available for
// "auto" and "".
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		detected, err := DetectBackend()
		if err != nil {
			return nil, err
		}
		name = detected
	}
	p, ok := programs[name]
	if !ok {
		return nil, fmt.Errorf("unknown launcher %q (expected auto, %s)", name, strings.Join(priority, ", "))
	}
	if _, err := lookPath(name); err != nil {
		return nil, fmt.Errorf("launcher %q not found in PATH", name)
	}
	return newCommand(p), nil
}
