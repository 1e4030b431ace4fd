//go:build !windows

package singleton

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

type fileGuard struct {
	once sync.Once
	file *os.File
	err  error
}

// Acquire takes an exclusive, non-blocking flock on path. The lock is
// released by the kernel if the process dies.
func Acquire(path string) (Guard, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	}
	return &fileGuard{file: f}, nil
}

func (g *fileGuard) Release() error {
	g.once.Do(func() {
		if err := unix.Flock(int(g.file.Fd()), unix.LOCK_UN); err != nil {
			g.err = fmt.Errorf("unlock: %w", err)
		}
		if err := g.file.Close(); err != nil && g.err == nil {
			g.err = err
		}
	})
	return g.err
}
