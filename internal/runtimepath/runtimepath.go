// Package runtimepath locates the per-user runtime files: the IPC socket and
// the single-instance lock.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	socketName = "keyshell.sock"
	lockName   = "keyshell.lock"
)

// Dir returns $XDG_RUNTIME_DIR, then /run/user/<uid>, then a private
// directory under the temp dir which is created on demand.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	uid := os.Getuid()
	if uid >= 0 {
		run := filepath.Join("/run/user", strconv.Itoa(uid))
		if info, err := os.Stat(run); err == nil && info.IsDir() {
			return run, nil
		}
	}
	dir := filepath.Join(os.TempDir(), "keyshell-"+owner(uid))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create runtime dir: %w", err)
	}
	return dir, nil
}

// owner names the temp directory. Windows has no uid, so the user name is
// used there.
func owner(uid int) string {
	if uid >= 0 {
		return strconv.Itoa(uid)
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "user"
}

func SocketPath() (string, error) {
	return join(socketName)
}

func LockPath() (string, error) {
	return join(lockName)
}

func join(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
