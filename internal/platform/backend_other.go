//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

// NewDefault reports that no window-system backend exists for this OS.
func NewDefault() (Backend, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
}
