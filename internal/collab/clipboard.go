package collab

import (
	"context"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// DefaultClipboardSize is the history bound.
const DefaultClipboardSize = 20

// ClipboardHistory keeps recent clipboard texts, newest first. Re-adding an
// entry moves it to the top.
type ClipboardHistory struct {
	mu      sync.Mutex
	entries []string
	size    int
	last    string

	read  func() (string, error)
	write func(string) error
	log   *zap.SugaredLogger
}

func NewClipboardHistory(size int, log *zap.SugaredLogger) *ClipboardHistory {
	if size <= 0 {
		size = DefaultClipboardSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ClipboardHistory{
		size:  size,
		read:  clipboard.ReadAll,
		write: clipboard.WriteAll,
		log:   log,
	}
}

// Add records text at the top of the history.
func (h *ClipboardHistory) Add(text string) {
	if text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(text)
}

func (h *ClipboardHistory) addLocked(text string) {
	for i, e := range h.entries {
		if e == text {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append([]string{text}, h.entries...)
	if len(h.entries) > h.size {
		h.entries = h.entries[:h.size]
	}
}

// Entries returns a copy of the history, newest first.
func (h *ClipboardHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Copy places text on the system clipboard and records it.
func (h *ClipboardHistory) Copy(text string) error {
	if err := h.write(text); err != nil {
		return err
	}
	h.mu.Lock()
	h.last = text
	h.addLocked(text)
	h.mu.Unlock()
	return nil
}

// Poll samples the system clipboard every interval until ctx is done.
func (h *ClipboardHistory) Poll(ctx context.Context, interval time.Duration) {
	if clipboard.Unsupported {
		h.log.Warn("clipboard history disabled: no clipboard utility available")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

func (h *ClipboardHistory) sample() {
	text, err := h.read()
	if err != nil {
		h.log.Debugw("clipboard read failed", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if text == "" || text == h.last {
		return
	}
	h.last = text
	h.addLocked(text)
}
