//go:build !linux && !windows

package hotkeys

import "github.com/1broseidon/keyshell/internal/platform"

// NewSystemSource reports that global capture is unavailable here.
func NewSystemSource(platform.Backend) (Source, error) {
	return nil, platform.ErrUnsupported
}
