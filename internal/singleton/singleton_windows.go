//go:build windows

package singleton

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/windows"
)

type mutexGuard struct {
	once   sync.Once
	handle windows.Handle
	err    error
}

// Acquire creates a named session mutex derived from path's base name.
func Acquire(path string) (Guard, error) {
	name := `Local\` + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("mutex name: %w", err)
	}
	h, err := windows.CreateMutex(nil, false, ptr)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if h != 0 {
				windows.CloseHandle(h)
			}
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("create mutex %s: %w", name, err)
	}
	return &mutexGuard{handle: h}, nil
}

func (g *mutexGuard) Release() error {
	g.once.Do(func() {
		g.err = windows.CloseHandle(g.handle)
	})
	return g.err
}
