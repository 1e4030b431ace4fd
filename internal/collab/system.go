package collab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Locker locks the session.
type Locker struct {
	runner Runner
	tools  Tools
}

func NewLocker(runner Runner, tools Tools) *Locker {
	return &Locker{runner: runner, tools: tools}
}

func (l *Locker) Lock() error {
	return l.tools.start(l.runner, "lock", nil)
}

// OCR captures a screen region with the "ocr" tool and returns the text it
// printed.
type OCR struct {
	runner Runner
	tools  Tools
}

func NewOCR(runner Runner, tools Tools) *OCR {
	return &OCR{runner: runner, tools: tools}
}

func (o *OCR) Capture(ctx context.Context) (string, error) {
	out, err := o.tools.output(ctx, o.runner, "ocr", nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("ocr: no text recognised")
	}
	return text, nil
}

// Notes appends timestamped quick notes to a text file.
type Notes struct {
	path string
	now  func() time.Time
}

func NewNotes(path string) *Notes {
	return &Notes{path: path, now: time.Now}
}

// Path returns the notes file.
func (n *Notes) Path() string {
	return n.path
}

// Append writes one line "[YYYY-MM-DD HH:MM] text".
func (n *Notes) Append(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("note is empty")
	}
	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notes: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] %s\n", n.now().Format("2006-01-02 15:04"), text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	return nil
}
