// Package crashlog writes top-level failures to timestamped files so they
// survive a daemon started without a terminal.
package crashlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

const fileLayout = "crash-20060102-150405.log"

// Reporter persists crash reports under a directory.
type Reporter struct {
	dir  string
	now  func() time.Time
	exit func(code int)
	mu   sync.Mutex
}

// New returns a reporter writing into dir.
func New(dir string) *Reporter {
	return &Reporter{dir: dir, now: time.Now, exit: os.Exit}
}

// Default returns a reporter writing into $XDG_STATE_HOME/keyshell.
func Default() *Reporter {
	return New(filepath.Join(xdg.StateHome, "keyshell"))
}

// Dir returns the report directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// FileName returns the report name for a failure at t.
func FileName(t time.Time) string {
	return t.Format(fileLayout)
}

// Report writes err with the calling goroutine's stack and returns the
// report path.
func (r *Reporter) Report(context string, err error) (string, error) {
	return r.write(context, err, stack(false))
}

// Recover should be deferred at the top of main and of long-lived
// goroutines. A recovered panic is written out and the process exits 2.
func (r *Reporter) Recover(context string) {
	if v := recover(); v != nil {
		path, err := r.write(context, v, stack(true))
		if err != nil {
			fmt.Fprintf(os.Stderr, "panic in %s: %v (crash log failed: %v)\n", context, v, err)
		} else {
			fmt.Fprintf(os.Stderr, "panic in %s: %v (details in %s)\n", context, v, path)
		}
		r.exit(2)
	}
}

// Go starts fn in a goroutine guarded by Recover.
func (r *Reporter) Go(context string, fn func()) {
	go func() {
		defer r.Recover(context)
		fn()
	}()
}

func (r *Reporter) write(context string, failure interface{}, trace []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}

	now := r.now()
	path := filepath.Join(r.dir, FileName(now))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open crash log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] failure in %s: %v\n", now.Format(time.RFC3339Nano), context, failure)
	fmt.Fprintf(&b, "pid: %d\n", os.Getpid())
	fmt.Fprintf(&b, "args: %q\n", os.Args)
	fmt.Fprintf(&b, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "goroutines: %d\n\n", runtime.NumGoroutine())
	b.Write(trace)
	b.WriteString("\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func stack(all bool) []byte {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, all)
	return buf[:n]
}
