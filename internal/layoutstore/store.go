// Package layoutstore persists named window arrangements.
package layoutstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no layout has the requested name.
var ErrNotFound = errors.New("layout not found")

// Window is one saved window placement, matched on restore by class and
// then title.
type Window struct {
	Class  string
	Title  string
	X      int
	Y      int
	Width  int
	Height int
}

// Layout is a named set of window placements.
type Layout struct {
	Name    string
	SavedAt time.Time
	Windows []Window
}

// Summary describes a saved layout without its windows.
type Summary struct {
	Name    string
	SavedAt time.Time
	Windows int
}

// Store saves and loads layouts. Saving an existing name replaces it.
type Store interface {
	Save(ctx context.Context, layout Layout) error
	Load(ctx context.Context, name string) (Layout, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// NormalizeName trims a layout name and rejects empty ones.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("layout name is required")
	}
	return name, nil
}
