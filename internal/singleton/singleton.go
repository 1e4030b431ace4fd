// Package singleton guards against a second daemon instance.
package singleton

import "errors"

// ErrAlreadyRunning is returned by Acquire when another process holds the
// guard.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard is a held instance lock. Release is safe to call more than once.
type Guard interface {
	Release() error
}
